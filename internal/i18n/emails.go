package i18n

import (
	"html"
	"strconv"
	"strings"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

type emailStrings struct {
	ConfirmationSubject string
	ConfirmationText    string
	ConfirmationHTML    string
}

var emailTranslations = map[string]emailStrings{
	"en": {
		ConfirmationSubject: "Confirm your email - Sixty Lens",
		ConfirmationText: "Hi {username},\n\n" +
			"Thanks for signing up for Sixty Lens. Confirm your email address by opening this link:\n\n" +
			"{link}\n\n" +
			"The link expires in {hours} hour(s). If you did not create an account, you can ignore this email.",
		ConfirmationHTML: "<p>Hi {username},</p>" +
			"<p>Thanks for signing up for Sixty Lens. Confirm your email address to start using your account.</p>" +
			"<p><a href=\"{link}\">Confirm email</a></p>" +
			"<p>The link expires in {hours} hour(s).</p>" +
			"<p>If you did not create an account, you can ignore this email.</p>",
	},
	"de": {
		ConfirmationSubject: "Bestätige deine E-Mail - Sixty Lens",
		ConfirmationText: "Hallo {username},\n\n" +
			"danke für deine Registrierung bei Sixty Lens. Bestätige deine E-Mail-Adresse über diesen Link:\n\n" +
			"{link}\n\n" +
			"Der Link ist {hours} Stunde(n) gültig. Falls du kein Konto erstellt hast, kannst du diese E-Mail ignorieren.",
		ConfirmationHTML: "<p>Hallo {username},</p>" +
			"<p>danke für deine Registrierung bei Sixty Lens. Bestätige deine E-Mail-Adresse, um dein Konto zu nutzen.</p>" +
			"<p><a href=\"{link}\">E-Mail bestätigen</a></p>" +
			"<p>Der Link ist {hours} Stunde(n) gültig.</p>" +
			"<p>Falls du kein Konto erstellt hast, kannst du diese E-Mail ignorieren.</p>",
	},
}

func emailStringsForLocale(locale string) emailStrings {
	key := NormalizeLocale(locale)
	if val, ok := emailTranslations[key]; ok {
		return val
	}
	return emailTranslations[DefaultLocale]
}

func renderTemplate(tmpl string, values map[string]string) string {
	if tmpl == "" || len(values) == 0 {
		return tmpl
	}

	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

// ConfirmationEmail renders the account confirmation message. The username is
// escaped in the HTML part.
func ConfirmationEmail(locale, username, link string, hours int) EmailContent {
	strs := emailStringsForLocale(locale)
	h := strconv.Itoa(hours)
	return EmailContent{
		Subject: strs.ConfirmationSubject,
		Text:    renderTemplate(strs.ConfirmationText, map[string]string{"username": username, "link": link, "hours": h}),
		HTML: renderTemplate(strs.ConfirmationHTML, map[string]string{
			"username": html.EscapeString(username),
			"link":     html.EscapeString(link),
			"hours":    h,
		}),
	}
}

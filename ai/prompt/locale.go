package prompt

import (
	"fmt"
	"time"
)

// Supported prompt locales.
const (
	LocaleEnglish = "en"
	LocaleFrench  = "fr"
)

type locale struct {
	days     [7]string // indexed by time.Weekday
	months   [12]string
	template string
}

var locales = map[string]*locale{
	LocaleEnglish: {
		days:   [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		months: [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		template: "You are a chat assistant. The current date and time is {{.Now}}.\n" +
			"You are currently used by {{.Name}}.\n" +
			"{{if .AboutUser}}\nAbout the user:\n{{.AboutUser}}{{end}}" +
			"{{if .Preference}}\nResponse preferences:\n{{.Preference}}{{end}}",
	},
	LocaleFrench: {
		days:   [7]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"},
		months: [12]string{"janvier", "février", "mars", "avril", "mai", "juin", "juillet", "août", "septembre", "octobre", "novembre", "décembre"},
		template: "Tu es un assistant de chat. La date et l'heure actuelle est le {{.Now}}.\n" +
			"Tu es actuellement utilisé par {{.Name}}.\n" +
			"{{if .AboutUser}}\nÀ propos de l'utilisateur:\n{{.AboutUser}}{{end}}" +
			"{{if .Preference}}\nPréférences de réponse:\n{{.Preference}}{{end}}",
	},
}

// formatDateTime renders t as "<weekday> <dd> <month> <yyyy> <HH:MM>".
func (l *locale) formatDateTime(t time.Time) string {
	return fmt.Sprintf("%s %02d %s %d %02d:%02d",
		l.days[t.Weekday()], t.Day(), l.months[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// IsSupportedLocale reports whether name has a prompt template.
func IsSupportedLocale(name string) bool {
	_, ok := locales[name]
	return ok
}

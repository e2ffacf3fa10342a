package domain

import "time"

const (
	LangID = "id"
	LangEN = "en"
)

var (
	monthsID   = [12]string{"Januari", "Februari", "Maret", "April", "Mei", "Juni", "Juli", "Agustus", "September", "Oktober", "November", "Desember"}
	monthsEN   = [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"}
	weekdaysID = []string{"Min", "Sen", "Sel", "Rab", "Kam", "Jum", "Sab"}
	weekdaysEN = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
)

// NormalizeLang maps anything but "en" to the default "id".
func NormalizeLang(lang string) string {
	if lang == LangEN {
		return LangEN
	}
	return LangID
}

func MonthName(lang string, m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	if NormalizeLang(lang) == LangEN {
		return monthsEN[m-1]
	}
	return monthsID[m-1]
}

// WeekdayNames returns short names starting on Sunday.
func WeekdayNames(lang string) []string {
	src := weekdaysID
	if NormalizeLang(lang) == LangEN {
		src = weekdaysEN
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

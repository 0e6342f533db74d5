package model

import "strconv"

func formatQuranID(surah, ayah int) string {
	return strconv.Itoa(surah) + ":" + strconv.Itoa(ayah)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}

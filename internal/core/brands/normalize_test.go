package brands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Acme  Corp.":          "acme corp",
		"acme-corp":            "acme corp",
		"  ACME_CORP  ":        "acme corp",
		"Bosch (Germany)":      "bosch germany",
		"ＢＯＳＣＨ":               "bosch",
		"Шнайдер  Электрик":    "шнайдер электрик",
		"...":                  "",
		"":                     "",
		"IEK.":                 "iek",
		"Legrand\t-\tFrance":   "legrand france",
		"ABB (Асеа Браун Бов)": "abb асеа браун бов",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"Acme  Corp.", "ＢＯＳＣＨ (de)", " x-y_z.w ", "Ünïcödé Brand", "ﬁne"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestNormalize_Equivalence(t *testing.T) {
	assert.Equal(t, Normalize("Acme  Corp."), Normalize("acme-corp"))
	assert.NotEqual(t, Normalize("Acme"), Normalize("Acme Corp"))
}

package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/chemo-dose-safety/internal/domain"
	"github.com/chemo-dose-safety/internal/registry"
)

func newTestLogger() (*logrus.Logger, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}

func newTestCalculator(t *testing.T, opts CalculatorOptions) *Calculator {
	t.Helper()
	logger, _ := newTestLogger()
	calc, err := NewCalculator(registry.Default(), opts, logger)
	require.NoError(t, err)
	return calc
}

// adultPatient has normal renal function and a fixed BSA of 1.8 m²
func adultPatient() domain.PatientProfile {
	return domain.PatientProfile{
		WeightKg:            70,
		HeightCm:            170,
		AgeYears:            55,
		Sex:                 domain.SexMale,
		CreatinineClearance: 90,
		BSA:                 1.8,
	}
}

func withAge(p domain.PatientProfile, age float64) domain.PatientProfile {
	p.AgeYears = age
	return p
}

func withCrCl(p domain.PatientProfile, crcl float64) domain.PatientProfile {
	p.CreatinineClearance = crcl
	return p
}

func alertsOfType(alerts []domain.SafetyAlert, t domain.AlertType) []domain.SafetyAlert {
	var out []domain.SafetyAlert
	for _, a := range alerts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

func alertsWithCode(alerts []domain.SafetyAlert, code domain.MessageCode) []domain.SafetyAlert {
	var out []domain.SafetyAlert
	for _, a := range alerts {
		if a.Message.Code == code {
			out = append(out, a)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }

package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/staff-appraisal-api/internal/models"
)

func partDValues() models.PartValues {
	return models.PartValues{
		"attendance":     4,
		"responsibility": 3,
		"honesty":        4,
		"teamwork":       2,
		"inclusiveness":  4,
		"conduct":        3,
	}
}

func TestCalculatePartD(t *testing.T) {
	score := Calculate(models.PartD, partDValues())
	require.Equal(t, 20.0, score.Score)
	require.Equal(t, 25.0, score.Max)
}

func TestCalculateClampsOutOfRangeValues(t *testing.T) {
	values := partDValues()
	values["teamwork"] = 7
	values["conduct"] = -2

	score := Calculate(models.PartD, values)
	// teamwork caps at 4, conduct floors at 0
	require.Equal(t, 19.0, score.Score)
}

func TestCalculateIsDeterministic(t *testing.T) {
	values := partDValues()
	first := Calculate(models.PartD, values)
	second := Calculate(models.PartD, values)
	require.Equal(t, first, second)
}

func TestCalculateIgnoresUndeclaredFields(t *testing.T) {
	values := partDValues()
	values["punctuality"] = 99

	score := Calculate(models.PartD, values)
	require.Equal(t, 20.0, score.Score)
}

func TestPartMaxConstants(t *testing.T) {
	require.Equal(t, 50.0, PartMax(models.PartA))
	require.Equal(t, 30.0, PartMax(models.PartB))
	require.Equal(t, 20.0, PartMax(models.PartC))
	require.Equal(t, 25.0, PartMax(models.PartD))
	require.Equal(t, 20.0, PartMax(models.PartE))
	require.Equal(t, 145.0, OverallMax())
}

func TestValidateShape(t *testing.T) {
	require.NoError(t, ValidateShape(models.PartD, partDValues()))

	missing := partDValues()
	delete(missing, "honesty")
	require.Error(t, ValidateShape(models.PartD, missing))

	extra := partDValues()
	extra["punctuality"] = 3
	require.Error(t, ValidateShape(models.PartD, extra))
}

func TestFieldsReturnsCopy(t *testing.T) {
	fields := Fields(models.PartA)
	require.Len(t, fields, 4)
	fields[0].Max = 999
	require.Equal(t, 10.0, Fields(models.PartA)[0].Max)
}

package series

import (
	"strings"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "Date,Open,Close,Volume\n" +
		"2024-01-03,1,102.5,1000\n" +
		"2024-01-02,1,101,\n" +
		"2024-01-04,1,,900\n" +
		"not-a-date,1,99,10\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), rows[0].Time)
	require.NotNil(t, rows[0].Close)
	assert.Equal(t, 102.5, *rows[0].Close)
	require.NotNil(t, rows[0].Volume)
	assert.Equal(t, 1000.0, *rows[0].Volume)

	assert.Nil(t, rows[1].Volume)
	assert.Nil(t, rows[2].Close)
	assert.True(t, rows[3].Time.IsZero())

	s, rep, err := Normalize("SPY", "csv", rows)
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102.5}, s.Closes())
	assert.Equal(t, 1, rep.MissingClose)
	assert.Equal(t, 1, rep.MissingTime)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("timestamp,price\n2024-01-01,1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestReadCSV_Empty(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestParseDate_Layouts(t *testing.T) {
	want := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-15", "03/15/2024", "2024/03/15", " 2024-03-15 "} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(want), "%s -> %v", in, got)
	}

	_, err := ParseDate("15.03.2024")
	assert.Error(t, err)
}

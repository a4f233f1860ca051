package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColumnType(t *testing.T) {
	cases := map[string]ColumnType{
		"timestamptz":                 TimestampTZ,
		"timestamp with time zone":    TimestampTZ,
		"timestamp":                   Timestamp,
		"timestamp without time zone": Timestamp,
		"date":                        Date,
		"smallint":                    Int2,
		"integer":                     Int4,
		"bigint":                      Int8,
	}
	for name, want := range cases {
		got, err := ParseColumnType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseColumnType("jsonb")
	require.Error(t, err)
}

func TestConverterFunc(t *testing.T) {
	assert.Equal(t, "to_timestamp", TimestampTZ.ConverterFunc())
	assert.Equal(t, "to_timestamp_without_timezone", Timestamp.ConverterFunc())
	assert.Equal(t, "to_date", Date.ConverterFunc())
	assert.Equal(t, "", Int8.ConverterFunc())
}

func TestMinLiteral(t *testing.T) {
	assert.Equal(t, "'-infinity'::timestamptz", TimestampTZ.MinLiteral())
	assert.Equal(t, "'-2147483648'::integer", Int4.MinLiteral())
}

func TestParseInterval(t *testing.T) {
	t.Run("one day equals 86400000000 ticks", func(t *testing.T) {
		iv, err := ParseInterval("1 day")
		require.NoError(t, err)
		assert.False(t, iv.HasMonth())
		assert.Equal(t, int64(86_400_000_000), iv.Ticks())
	})

	t.Run("compound", func(t *testing.T) {
		iv, err := ParseInterval("2 days 12 hours")
		require.NoError(t, err)
		assert.Equal(t, int32(2), iv.Days)
		assert.Equal(t, 12*UsecsPerHour, iv.Usecs)
	})

	t.Run("months are variable", func(t *testing.T) {
		iv, err := ParseInterval("3 months")
		require.NoError(t, err)
		assert.True(t, iv.HasMonth())
		assert.False(t, iv.HasDayOrTime())
		assert.Equal(t, 3*30*UsecsPerDay, iv.NominalTicks())
	})

	t.Run("year folds to months", func(t *testing.T) {
		iv, err := ParseInterval("1 year")
		require.NoError(t, err)
		assert.Equal(t, int32(12), iv.Months)
	})

	t.Run("fractional hours allowed", func(t *testing.T) {
		iv, err := ParseInterval("1.5 hours")
		require.NoError(t, err)
		assert.Equal(t, 90*UsecsPerMinute, iv.Usecs)
	})

	t.Run("fractional months rejected", func(t *testing.T) {
		_, err := ParseInterval("1.5 months")
		require.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		for _, bad := range []string{"", "hour", "1 fortnight", "one hour"} {
			_, err := ParseInterval(bad)
			assert.Error(t, err, bad)
		}
	})
}

func TestIntervalString(t *testing.T) {
	iv, err := ParseInterval("1 hour")
	require.NoError(t, err)
	assert.Equal(t, "01:00:00", iv.String())

	iv, err = ParseInterval("45 minutes")
	require.NoError(t, err)
	assert.Equal(t, "00:45:00", iv.String())

	iv, err = ParseInterval("1 month")
	require.NoError(t, err)
	assert.Equal(t, "1 mons", iv.String())
}

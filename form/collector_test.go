package form

import (
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houseprice/ml"
)

func TestCollectDefaults(t *testing.T) {
	record, err := Collect(url.Values{})
	require.NoError(t, err)

	want := ml.Record{
		Town:              "",
		Type:              "",
		TotalArea:         80,
		TotalRooms:        3,
		NumberOfBathrooms: 1,
		Parking:           0,
		Elevator:          0,
		NoTransitRoute:    0,
		CarTime:           20.0,
		CarDistance:       10.0,
		TransitTime:       30.0,
	}
	assert.Equal(t, want, record)
}

func TestCollectDerivesTransitTime(t *testing.T) {
	for _, carTime := range []string{"0", "12.5", "20", "95.25"} {
		record, err := Collect(url.Values{
			NoTransitRoute: {"1"},
			CarTime:        {carTime},
			TransitTime:    {"999"},
		})
		require.NoError(t, err)
		assert.Equal(t, record[CarTime], record[TransitTime], "car time %s", carTime)
	}
}

func TestCollectIgnoresInvalidTransitWhenDerived(t *testing.T) {
	record, err := Collect(url.Values{NoTransitRoute: {"1"}, TransitTime: {"-4"}})
	require.NoError(t, err)
	assert.Equal(t, 20.0, record[TransitTime])
}

func TestCollectTransitCollectedWhenRouteExists(t *testing.T) {
	record, err := Collect(url.Values{NoTransitRoute: {"0"}, CarTime: {"15"}, TransitTime: {"42.5"}})
	require.NoError(t, err)
	assert.Equal(t, 42.5, record[TransitTime])
	assert.Equal(t, 15.0, record[CarTime])
}

func TestCollectTownOverride(t *testing.T) {
	record, err := Collect(url.Values{Town: {"Lisboa"}, TownManual: {"  Sintra "}, Type: {" Apartment "}})
	require.NoError(t, err)
	assert.Equal(t, "Sintra", record[Town])
	assert.Equal(t, "Apartment", record[Type])

	record, err = Collect(url.Values{Town: {" Lisboa "}, TownManual: {"   "}})
	require.NoError(t, err)
	assert.Equal(t, "Lisboa", record[Town])
}

func TestCollectRejectsOutOfBounds(t *testing.T) {
	_, err := Collect(url.Values{
		TotalArea:      {"-1"},
		Elevator:       {"2"},
		NoTransitRoute: {"yes"},
		CarDistance:    {"NaN"},
		TotalRooms:     {"2.5"},
		CarTime:        {"-0.5"},
	})
	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))

	assert.Len(t, invalid.Fields, 6)
	assert.Equal(t, "must not be negative", invalid.Reason(TotalArea))
	assert.Equal(t, "must be 0 or 1", invalid.Reason(Elevator))
	assert.Equal(t, "must be a whole number", invalid.Reason(NoTransitRoute))
	assert.Equal(t, "must be a number", invalid.Reason(CarDistance))
	assert.Equal(t, "must be a whole number", invalid.Reason(TotalRooms))
	assert.Equal(t, "must not be negative", invalid.Reason(CarTime))
	assert.Empty(t, invalid.Reason(Parking))
	assert.Contains(t, err.Error(), "Elevator must be 0 or 1")
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	assert.Equal(t, 80, defaults[TotalArea])
	assert.Equal(t, 30.0, defaults[TransitTime])
	assert.NotContains(t, defaults, Town)
}

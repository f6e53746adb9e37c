package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandPlan_Channel(t *testing.T) {
	tests := []struct {
		plan    BandPlan
		freq    uint16
		channel uint16
	}{
		{BandPlan{BandUSEurope, Spacing200kHz}, 8750, 0},
		{BandPlan{BandUSEurope, Spacing200kHz}, 9270, 26},
		{BandPlan{BandUSEurope, Spacing200kHz}, 9285, 26},
		{BandPlan{BandUSEurope, Spacing200kHz}, 10790, 102},
		{BandPlan{BandUSEurope, Spacing100kHz}, 10800, 205},
		{BandPlan{BandUSEurope, Spacing50kHz}, 8755, 1},
		{BandPlan{BandJapanWide, Spacing100kHz}, 7600, 0},
		{BandPlan{BandJapanWide, Spacing100kHz}, 10800, 320},
		{BandPlan{BandJapan, Spacing100kHz}, 9000, 140},
	}
	for _, tt := range tests {
		ch, err := tt.plan.Channel(tt.freq)
		require.NoError(t, err, "%s %s %d", tt.plan.Band, tt.plan.Spacing, tt.freq)
		assert.Equal(t, tt.channel, ch, "%s %s %d", tt.plan.Band, tt.plan.Spacing, tt.freq)
		assert.LessOrEqual(t, tt.plan.Frequency(ch), tt.freq)
	}
}

func TestBandPlan_ChannelOutOfBand(t *testing.T) {
	us := BandPlan{}
	for _, freq := range []uint16{0, 7600, 8749, 10801} {
		_, err := us.Channel(freq)
		assert.ErrorIs(t, err, ErrInvalidFrequency, "%d", freq)
	}

	japan := BandPlan{Band: BandJapan, Spacing: Spacing100kHz}
	_, err := japan.Channel(9010)
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestBandPlan_RoundTrip(t *testing.T) {
	for band := BandUSEurope; band <= BandJapan; band++ {
		for spacing := Spacing200kHz; spacing <= Spacing50kHz; spacing++ {
			plan := BandPlan{Band: band, Spacing: spacing}
			for ch := 0; ch < plan.Channels(); ch++ {
				freq := plan.Frequency(uint16(ch))
				assert.LessOrEqual(t, freq, plan.Ceiling())
				got, err := plan.Channel(freq)
				require.NoError(t, err)
				require.Equal(t, uint16(ch), got)
			}
		}
	}
}

func TestBandPlan_Channels(t *testing.T) {
	assert.Equal(t, 103, BandPlan{BandUSEurope, Spacing200kHz}.Channels())
	assert.Equal(t, 206, BandPlan{BandUSEurope, Spacing100kHz}.Channels())
	assert.Equal(t, 141, BandPlan{BandJapan, Spacing100kHz}.Channels())
	assert.Equal(t, 641, BandPlan{BandJapanWide, Spacing50kHz}.Channels())
}

func TestBandPlan_Validate(t *testing.T) {
	assert.NoError(t, BandPlan{BandJapanWide, Spacing50kHz}.validate())
	assert.Error(t, BandPlan{Band: 3}.validate())
	assert.Error(t, BandPlan{Spacing: 3}.validate())

	assert.Equal(t, uint16(0x0060), BandPlan{BandJapanWide, Spacing50kHz}.sysconfig2())
	assert.Equal(t, "76-90 MHz", BandJapan.String())
	assert.Equal(t, "Spacing(3)", Spacing(3).String())
}

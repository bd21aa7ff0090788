package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitDateAndQuery(t *testing.T) {
	cases := []struct {
		in       string
		wantDate string
		wantRest string
	}{
		{"2024-03-05 beach photos", "2024-03-05", "beach photos"},
		{"photos from 3/5 please", "3/5", "photos from please"},
		{"3月5日 的照片", "3月5日", "的照片"},
		{"no date here", "", "no date here"},
	}
	for _, c := range cases {
		date, rest := SplitDateAndQuery(c.in)
		assert.Equal(t, c.wantDate, date, c.in)
		assert.Equal(t, c.wantRest, rest, c.in)
	}
}

func TestParseDateTextFullYear(t *testing.T) {
	p, ok := ParseDateText("2024-03-05")
	assert.True(t, ok)
	assert.NotNil(t, p.Year)
	assert.Equal(t, 2024, *p.Year)
	assert.Equal(t, 3, p.Month)
	assert.Equal(t, 5, p.Day)
}

func TestParseDateTextMonthDayOnly(t *testing.T) {
	p, ok := ParseDateText("3/5")
	assert.True(t, ok)
	assert.Nil(t, p.Year)
	assert.Equal(t, 3, p.Month)
	assert.Equal(t, 5, p.Day)
}

func TestParseDateTextChinese(t *testing.T) {
	p, ok := ParseDateText("3月5日")
	assert.True(t, ok)
	assert.Nil(t, p.Year)
	assert.Equal(t, 3, p.Month)
	assert.Equal(t, 5, p.Day)
}

func TestParseDateTextRejectsOutOfRange(t *testing.T) {
	_, ok := ParseDateText("13/40")
	assert.False(t, ok)
}

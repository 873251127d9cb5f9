package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberDecoding(t *testing.T) {
	cases := []struct {
		body     string
		value    float64
		present  bool
		negative bool
	}{
		{`{}`, 0, false, false},
		{`{"price":null}`, 0, false, false},
		{`{"price":12.5}`, 12.5, true, false},
		{`{"price":"7"}`, 7, true, false},
		{`{"price":"abc"}`, 0, true, false},
		{`{"price":"-5"}`, -5, true, true},
		{`{"price":true}`, 0, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			var req CreateCourseRequest
			require.NoError(t, json.Unmarshal([]byte(tc.body), &req))
			assert.Equal(t, tc.value, req.Price.Value)
			assert.Equal(t, tc.present, req.Price.Present)
			assert.Equal(t, tc.negative, req.Price.Negative())
		})
	}
}

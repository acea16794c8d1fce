package adapters

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
		want      float64
	}{
		{`42`, true, 42},
		{`58.5`, true, 58.5},
		{`-3`, true, -3},
		{`"7.25"`, true, 7.25},
		{`" 12 "`, true, 12},
		{`"n/a"`, false, 0},
		{`""`, false, 0},
		{`null`, false, 0},
		{`true`, false, 0},
		{`{"value":1}`, false, 0},
		{`[1,2]`, false, 0},
		{`"NaN"`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var payload struct {
				N Number `json:"n"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"n":`+tt.input+`}`), &payload))
			assert.Equal(t, tt.wantValid, payload.N.Valid)
			assert.Equal(t, tt.want, payload.N.Float())
		})
	}
}

func TestNumber_Accessors(t *testing.T) {
	absent := Number{}
	assert.Zero(t, absent.Int())
	assert.Nil(t, absent.Ptr())

	n := Number{Value: 10431.6, Valid: true}
	assert.Equal(t, 10432, n.Int())
	require.NotNil(t, n.Ptr())
	assert.Equal(t, 10431.6, *n.Ptr())
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	type entry struct {
		Name string `json:"name"`
	}
	var payload struct {
		Good    Optional[[]entry] `json:"good"`
		Drifted Optional[[]entry] `json:"drifted"`
		Null    Optional[[]entry] `json:"null"`
		Missing Optional[[]entry] `json:"missing"`
	}

	body := `{"good":[{"name":"a"}],"drifted":{"name":"b"},"null":null}`
	require.NoError(t, json.Unmarshal([]byte(body), &payload))

	assert.True(t, payload.Good.Valid)
	assert.Equal(t, []entry{{Name: "a"}}, payload.Good.Value)
	assert.False(t, payload.Drifted.Valid)
	assert.Empty(t, payload.Drifted.Value)
	assert.False(t, payload.Null.Valid)
	assert.False(t, payload.Missing.Valid)
}

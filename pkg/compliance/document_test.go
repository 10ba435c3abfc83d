package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentVerifier(t *testing.T) {
	v := NewDocumentVerifier()

	tests := []struct {
		text  string
		score int
		pass  bool
	}{
		{"JOHN DOE 1990-01-01 ID123", 3, true},
		{"JOHN", 2, true},
		{"2020", 2, true},
		{"-", 1, false},
		{"john doe", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.score, v.Score(tt.text))
			assert.Equal(t, tt.pass, v.Check(tt.text))
		})
	}
}

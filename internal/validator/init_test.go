package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type settingsRequest struct {
	Symbol     string `validate:"omitempty,mark"`
	Difficulty string `validate:"omitempty,difficulty"`
	Index      *int   `validate:"required,min=0,max=8"`
}

func TestGetValidator_GameTags(t *testing.T) {
	four := 4
	nine := 9

	tests := []struct {
		name    string
		req     settingsRequest
		wantErr bool
	}{
		{name: "valid", req: settingsRequest{Symbol: "O", Difficulty: "hard", Index: &four}},
		{name: "defaults allowed", req: settingsRequest{Index: &four}},
		{name: "bad symbol", req: settingsRequest{Symbol: "Q", Index: &four}, wantErr: true},
		{name: "bad difficulty", req: settingsRequest{Difficulty: "nightmare", Index: &four}, wantErr: true},
		{name: "index out of range", req: settingsRequest{Index: &nine}, wantErr: true},
		{name: "index missing", req: settingsRequest{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := GetValidator().Struct(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	validatorV10 "github.com/go-playground/validator/v10"
)

type sample struct {
	Content string `binding:"required,notblank,maxrunes=5"`
}

func TestCustomValidator(t *testing.T) {
	v := NewCustomValidator()
	engine, ok := v.Engine().(*validatorV10.Validate)
	require.True(t, ok)
	Register(engine)

	tests := []struct {
		name    string
		obj     interface{}
		wantErr bool
	}{
		{"ok", sample{Content: "hello"}, false},
		{"pointer", &sample{Content: "笔记"}, false},
		{"blank", sample{Content: "   "}, true},
		{"too long", sample{Content: strings.Repeat("字", 6)}, true},
		{"trimmed fits", sample{Content: "  abcde  "}, false},
		{"non struct", 42, false},
		{"slice", []sample{{Content: "a"}, {Content: ""}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.obj)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

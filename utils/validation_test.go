package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testItem struct {
	Kind string `validate:"required,oneof=text image"`
}

type testPayload struct {
	Destination string     `validate:"required"`
	Endpoint    string     `validate:"omitempty,url"`
	Limit       int        `validate:"gte=0,lte=150"`
	Items       []testItem `validate:"dive"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := testPayload{
			Destination: "U123",
			Endpoint:    "https://api.line.me",
			Limit:       80,
			Items:       []testItem{{Kind: "text"}},
		}

		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("missing required field", func(t *testing.T) {
		s := testPayload{Limit: 10}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "Destination is required", fields["Destination"])
	})

	t.Run("invalid url", func(t *testing.T) {
		s := testPayload{Destination: "U123", Endpoint: "not a url"}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "Endpoint must be a valid URL", fields["Endpoint"])
	})

	t.Run("out of range", func(t *testing.T) {
		s := testPayload{Destination: "U123", Limit: 200}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Contains(t, fields, "Limit")
	})

	t.Run("nested element uses its path", func(t *testing.T) {
		s := testPayload{
			Destination: "U123",
			Items:       []testItem{{Kind: "text"}, {}},
		}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "Items[1].Kind is required", fields["Items[1].Kind"])
	})

	t.Run("oneof violation", func(t *testing.T) {
		s := testPayload{
			Destination: "U123",
			Items:       []testItem{{Kind: "sticker"}},
		}

		err := ValidateStruct(&s)
		require.Error(t, err)

		fields := GetValidationFields(err)
		assert.Equal(t, "Items[0].Kind must be one of: text image", fields["Items[0].Kind"])
	})
}

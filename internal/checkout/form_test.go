package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"0712 345 678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"(071) 234-5678", "254712345678"},
		{"+1 415 555 0100", "14155550100"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePhone(tc.in), tc.in)
	}
}

func TestFormValidation(t *testing.T) {
	v := newValidator()

	valid := Form{Name: "Wanjiru", Email: "wanjiru@example.com", Phone: "0712 345 678"}
	require.NoError(t, v.Struct(valid))

	cases := map[string]Form{
		"missing name":      {Email: "a@b.co", Phone: "0712345678"},
		"bad email":         {Name: "A", Email: "not-an-email", Phone: "0712345678"},
		"short phone":       {Name: "A", Email: "a@b.co", Phone: "071234"},
		"long phone":        {Name: "A", Email: "a@b.co", Phone: "0712345678901234"},
		"letters in phone":  {Name: "A", Email: "a@b.co", Phone: "07123ABC678"},
		"missing phone":     {Name: "A", Email: "a@b.co"},
		"coupon over limit": {Name: "A", Email: "a@b.co", Phone: "0712345678", CouponCode: string(make([]byte, 65))},
	}
	for name, form := range cases {
		assert.Error(t, v.Struct(form), name)
	}
}

func TestFieldErrorsKeyedByLowercaseField(t *testing.T) {
	err := newValidator().Struct(Form{Name: "A", Email: "nope", Phone: "1"})
	require.Error(t, err)

	fields := fieldErrors(err)
	assert.Equal(t, "email", fields["email"])
	assert.Equal(t, "phone", fields["phone"])
	assert.NotContains(t, fields, "name")
}

package schema

import (
	"context"
	stdjson "encoding/json"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reqdep "github.com/gburgyan/go-reqdep"
)

type inputForm struct {
	Form
	ID   int    `json:"id" validate:"required"`
	Name string `json:"name" validate:"required,max=8"`
	Note string `json:"note,omitempty"`
}

type plainSchema struct {
	Count  int      `json:"count" validate:"gte=0"`
	Tags   []string `json:"tags" validate:"max=2"`
	Hidden string   `json:"-"`
}

type userRow struct {
	ID       int
	Name     string
	Password string
}

func validationErrors(t *testing.T, err error) []string {
	t.Helper()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, DefaultMessage, ve.Message)
	assert.Equal(t, 422, ve.StatusCode())
	return ve.Errors
}

func TestValidate_Text(t *testing.T) {
	form, err := Validate[inputForm](`{"id": 1, "name": "test"}`)
	require.NoError(t, err)
	assert.Equal(t, 1, form.ID)
	assert.Equal(t, "test", form.Name)

	form, err = Validate[inputForm]([]byte(`{"id": 2, "name": "bytes", "extra": true}`))
	require.NoError(t, err)
	assert.Equal(t, 2, form.ID)

	form, err = Validate[inputForm](stdjson.RawMessage(`{"id": 3, "name": "raw"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, form.ID)
}

func TestValidate_DoubleEncoded(t *testing.T) {
	form, err := Validate[inputForm](`"{\"id\": 4, \"name\": \"twice\"}"`)
	require.NoError(t, err)
	assert.Equal(t, 4, form.ID)
	assert.Equal(t, "twice", form.Name)
}

func TestValidate_Map(t *testing.T) {
	form, err := Validate[inputForm](map[string]any{"id": 5, "name": "map"})
	require.NoError(t, err)
	assert.Equal(t, 5, form.ID)

	form, err = Validate[inputForm](map[string]string{"name": "typed"})
	assert.Nil(t, form)
	assert.Equal(t, []string{"id field required"}, validationErrors(t, err))
}

func TestValidate_Attributes(t *testing.T) {
	form, err := Validate[inputForm](&userRow{ID: 6, Name: "orm", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, 6, form.ID)
	assert.Equal(t, "orm", form.Name)
}

func TestValidate_MissingRequired(t *testing.T) {
	_, err := Validate[inputForm](`{"id": 1}`)
	assert.Equal(t, []string{"name field required"}, validationErrors(t, err))

	_, err = Validate[inputForm](`{}`)
	assert.Equal(t, []string{"id field required", "name field required"}, validationErrors(t, err))

	_, err = Validate[inputForm](`{"id": null, "name": "x"}`)
	assert.Equal(t, []string{"id field required"}, validationErrors(t, err))
}

func TestValidate_PresentZeroValues(t *testing.T) {
	form, err := Validate[inputForm](`{"id": 0, "name": ""}`)
	require.NoError(t, err)
	assert.Equal(t, 0, form.ID)
	assert.Empty(t, form.Name)

	form, err = Validate[inputForm](map[string]any{"id": 0, "name": ""})
	require.NoError(t, err)
	assert.Equal(t, 0, form.ID)

	_, err = Validate[inputForm](`{"id": 0}`)
	assert.Equal(t, []string{"name field required"}, validationErrors(t, err))

	_, err = Validate[inputForm](`{"id": 0, "name": "far too long"}`)
	assert.Equal(t, []string{"name field must be at most 8"}, validationErrors(t, err))
}

func TestValidate_InvalidTypes(t *testing.T) {
	_, err := Validate[inputForm](`{"id": "abc", "name": "x"}`)
	assert.Equal(t, []string{"id field has invalid type"}, validationErrors(t, err))

	_, err = Validate[inputForm](`{"id": 1.5, "name": 7}`)
	assert.Equal(t, []string{"id field has invalid type", "name field has invalid type"}, validationErrors(t, err))
}

func TestValidate_Rules(t *testing.T) {
	_, err := Validate[inputForm](`{"id": 1, "name": "far too long"}`)
	assert.Equal(t, []string{"name field must be at most 8"}, validationErrors(t, err))

	_, err = Validate[plainSchema](`{"count": -1, "tags": ["a", "b", "c"]}`)
	assert.Equal(t, []string{
		"count field must be at least 0",
		"tags field must be at most 2",
	}, validationErrors(t, err))

	s, err := Validate[plainSchema](`{"count": 2, "Hidden": "ignored"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Count)
	assert.Empty(t, s.Hidden)
}

func TestValidate_BadPayloads(t *testing.T) {
	_, err := Validate[inputForm](`{not json`)
	assert.Equal(t, []string{"payload is not valid JSON"}, validationErrors(t, err))

	_, err = Validate[inputForm](`[1, 2]`)
	assert.Equal(t, []string{"payload must be an object"}, validationErrors(t, err))

	_, err = Validate[inputForm](42)
	assert.Equal(t, []string{"payload must be an object"}, validationErrors(t, err))

	err = ValidateInto(inputForm{}, `{}`)
	assert.Error(t, err)
	assert.False(t, IsValidationError(err))
}

func TestValidationError(t *testing.T) {
	ve := &ValidationError{Message: DefaultMessage, Errors: []string{"a field required", "b field required"}}
	assert.Equal(t, "Invalid Input Data: a field required; b field required", ve.Error())

	custom := ve.WithMessage("Bad input")
	assert.Equal(t, "Bad input", custom.Message)
	assert.Equal(t, ve.Errors, custom.Errors)
	assert.Equal(t, DefaultMessage, (&ValidationError{Message: DefaultMessage}).Error())
}

func TestRequiredFieldsAndExists(t *testing.T) {
	ft := reflect.TypeOf(inputForm{})
	assert.Equal(t, []string{"id", "name"}, RequiredFields(ft))
	assert.Equal(t, []string{"id", "name"}, RequiredFields(reflect.TypeOf(&inputForm{})))
	assert.Nil(t, RequiredFields(reflect.TypeOf(1)))

	assert.True(t, Exists(ft, `{"id": 1, "name": "x"}`))
	assert.True(t, Exists(ft, `{"id": 1, "name": "far too long"}`))
	assert.False(t, Exists(ft, `{"id": 1}`))
	assert.False(t, Exists(ft, `not json`))
	assert.False(t, Exists(reflect.TypeOf(1), `{}`))

	assert.True(t, IsModel(ft))
	assert.True(t, IsModel(reflect.TypeOf(&inputForm{})))
	assert.False(t, IsModel(reflect.TypeOf(plainSchema{})))
	assert.False(t, IsModel(nil))
}

func TestBodyHook(t *testing.T) {
	providers := reqdep.NewProviders(reqdep.WithHook(BodyHook{}))

	t.Run("binds the body", func(t *testing.T) {
		ctx, s := reqdep.NewScope(context.Background(), providers,
			reqdep.Seed(Body(`{"id": 9, "name": "hook"}`)))
		defer s.Close()

		form, err := reqdep.Get[*inputForm](ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, 9, form.ID)

		byValue, err := reqdep.Get[inputForm](ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, "hook", byValue.Name)
	})

	t.Run("invalid body", func(t *testing.T) {
		ctx, s := reqdep.NewScope(context.Background(), providers,
			reqdep.Seed(Body(`{"id": 9}`)))
		defer s.Close()

		_, err := reqdep.Get[*inputForm](ctx, nil)
		assert.Equal(t, []string{"name field required"}, validationErrors(t, err))
	})

	t.Run("checks the body", func(t *testing.T) {
		type other struct {
			Form
			Code string `json:"code" validate:"required"`
		}
		ctx, s := reqdep.NewScope(context.Background(), providers,
			reqdep.Seed(Body(`{"code": "x"}`)))
		defer s.Close()

		v, err := reqdep.Get[Model](ctx, reqdep.OneOf(reqdep.TypeOf[*inputForm](), reqdep.TypeOf[*other]()))
		require.NoError(t, err)
		assert.Equal(t, "x", v.(*other).Code)
	})

	t.Run("no body provider", func(t *testing.T) {
		ctx, s := reqdep.NewScope(context.Background(), providers)
		defer s.Close()

		_, err := reqdep.Get[*inputForm](ctx, nil)
		assert.ErrorIs(t, err, reqdep.ErrNoProvider)
		assert.False(t, BodyHook{}.Exists(ctx, reflect.TypeOf(&inputForm{})))
	})
}

func TestFromBody(t *testing.T) {
	form, err := FromBody[inputForm](Body(`{"id": 10, "name": "direct"}`))
	require.NoError(t, err)
	assert.Equal(t, 10, form.ID)
}

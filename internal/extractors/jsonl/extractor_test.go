package jsonl

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/feeder/internal/core/domain"
)

func TestNew(t *testing.T) {
	e := New("")
	require.NotNil(t, e)
	assert.Equal(t, []domain.Format{domain.FormatJSONLines}, e.Formats())
	assert.ElementsMatch(t, []string{".json", ".jsonl"}, e.Extensions())
	assert.Equal(t, 50, e.Priority())
}

func TestExtract_NormalisesFieldNames(t *testing.T) {
	input := strings.Join([]string{
		`{"text": "Alpha body.", "title": "Alpha", "url": "https://en.wikipedia.org/wiki/Alpha"}`,
		`{"content": "Beta body.", "title": "Beta", "name": "beta-source"}`,
		`{"text": "Gamma body.", "category": "b"}`,
	}, "\n")

	e := New("a")
	file := domain.SourceFile{Path: "dump/wiki.json", Name: "wiki.json", Format: domain.FormatJSONLines}

	res, err := e.Extract(context.Background(), file, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Passages, 3)
	assert.Empty(t, res.RecordErrors)

	assert.Equal(t, domain.RawPassage{
		Content:   "Alpha body.",
		Title:     "Alpha",
		SourceURL: "https://en.wikipedia.org/wiki/Alpha",
		Category:  "a",
		Line:      1,
	}, res.Passages[0])

	assert.Equal(t, "Beta body.", res.Passages[1].Content)
	assert.Equal(t, "beta-source", res.Passages[1].SourceURL)
	assert.Equal(t, 2, res.Passages[1].Line)

	assert.Equal(t, "b", res.Passages[2].Category)
	assert.Empty(t, res.Passages[2].SourceURL)
}

func TestExtract_BadLineDoesNotDropFile(t *testing.T) {
	input := strings.Join([]string{
		`{"text": "first"}`,
		`{"text": "broken"`,
		``,
		`{"title": "no body"}`,
		`{"text": "last"}`,
	}, "\n")

	e := New("")
	file := domain.SourceFile{Path: "dump/bad.json", Name: "bad.json"}

	res, err := e.Extract(context.Background(), file, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Passages, 2)
	assert.Equal(t, "first", res.Passages[0].Content)
	assert.Equal(t, "last", res.Passages[1].Content)
	assert.Equal(t, 5, res.Passages[1].Line)

	require.Len(t, res.RecordErrors, 2)
	for _, recErr := range res.RecordErrors {
		assert.ErrorIs(t, recErr, domain.ErrParse)
	}

	var pe *domain.ParseError
	require.True(t, errors.As(res.RecordErrors[0], &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "dump/bad.json", pe.Path)

	require.True(t, errors.As(res.RecordErrors[1], &pe))
	assert.Equal(t, 4, pe.Line)
	assert.ErrorIs(t, pe, errEmptyBody)
}

func TestExtract_EmptyFile(t *testing.T) {
	res, err := New("").Extract(context.Background(), domain.SourceFile{Path: "empty.json"}, strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, res.Passages)
	assert.Empty(t, res.RecordErrors)
}

func TestExtract_OversizedLineIsSkipped(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		huge int
	}{
		{name: "default limit", huge: MaxLineSize + 1},
		{name: "configured limit", opts: []Option{WithMaxLineSize(64)}, huge: 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := `{"text": "before"}` + "\n" +
				`{"text": "` + strings.Repeat("a", tt.huge) + `"}` + "\n" +
				`{"text": "after"}` + "\n"

			res, err := New("", tt.opts...).Extract(context.Background(), domain.SourceFile{Path: "dump.json"}, strings.NewReader(input))
			require.NoError(t, err)

			require.Len(t, res.Passages, 2)
			assert.Equal(t, "before", res.Passages[0].Content)
			assert.Equal(t, "after", res.Passages[1].Content)
			assert.Equal(t, 3, res.Passages[1].Line)

			require.Len(t, res.RecordErrors, 1)
			var pe *domain.ParseError
			require.True(t, errors.As(res.RecordErrors[0], &pe))
			assert.Equal(t, 2, pe.Line)
			assert.ErrorIs(t, pe, errLineTooLong)
		})
	}
}

func TestExtract_InvalidUTF8(t *testing.T) {
	input := "{\"text\": \"ok\"}\n{\"text\": \"bad \xff\xfe\"}\n"

	res, err := New("").Extract(context.Background(), domain.SourceFile{Path: "latin1.json"}, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, res.Passages, 1)
	require.Len(t, res.RecordErrors, 1)
	assert.ErrorIs(t, res.RecordErrors[0], errInvalidUTF8)
	assert.ErrorIs(t, res.RecordErrors[0], domain.ErrParse)
}

func TestExtract_EmptyTextFallsBackToContent(t *testing.T) {
	input := `{"text": "", "content": "from content"}` + "\r\n" + `{"text": "  ", "content": "also content"}`

	res, err := New("").Extract(context.Background(), domain.SourceFile{Path: "d.json"}, strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, res.RecordErrors)
	require.Len(t, res.Passages, 2)
	assert.Equal(t, "from content", res.Passages[0].Content)
	assert.Equal(t, "also content", res.Passages[1].Content)
}

func TestExtract_ReaderFailure(t *testing.T) {
	r := io.MultiReader(strings.NewReader(`{"text": "partial"}`+"\n"), iotest.ErrReader(io.ErrUnexpectedEOF))

	res, err := New("").Extract(context.Background(), domain.SourceFile{Path: "cut.json"}, r)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, domain.ErrExtraction)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

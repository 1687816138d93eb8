package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/news-analytics/backend/internal/models"
)

func TestFieldValueLabels(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
		want  []string
	}{
		{name: "null", raw: `null`, field: "source", want: nil},
		{name: "string", raw: `"  kompas "`, field: "source", want: []string{"kompas"}},
		{name: "blank string", raw: `"   "`, field: "source", want: nil},
		{name: "number", raw: `42`, field: "category", want: []string{"42"}},
		{name: "bool", raw: `true`, field: "category", want: []string{"true"}},
		{name: "object name", raw: `{"name":"Kompas","id":3}`, field: "source", want: []string{"Kompas"}},
		{name: "object title", raw: `{"title":"Politik"}`, field: "category", want: []string{"Politik"}},
		{name: "object label", raw: `{"label":"Olahraga"}`, field: "category", want: []string{"Olahraga"}},
		{name: "name wins over label", raw: `{"label":"L","name":"N"}`, field: "category", want: []string{"N"}},
		{name: "blank name falls through", raw: `{"name":" ","title":"T"}`, field: "category", want: []string{"T"}},
		{name: "non-scalar name skipped", raw: `{"name":{"x":1},"label":"L"}`, field: "category", want: []string{"L"}},
		{name: "field-named sub-key", raw: `{"source":"detik","id":1}`, field: "source", want: []string{"detik"}},
		{name: "field-named sub-key needs a field", raw: `{"source":"detik"}`, field: "", want: []string{`{"source":"detik"}`}},
		{name: "compact json fallback", raw: `{ "id": 7,  "url": "x" }`, field: "source", want: []string{`{"id":7,"url":"x"}`}},
		{name: "empty object", raw: `{}`, field: "source", want: nil},
		{name: "list", raw: `["a", {"name":"b"}, "  ", 5]`, field: "category", want: []string{"a", "b", "5"}},
		{name: "nested list", raw: `[["a", ["b"]], {"category":"c"}]`, field: "category", want: []string{"a", "b", "c"}},
		{name: "empty list", raw: `[]`, field: "category", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v models.FieldValue
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			assert.Equal(t, tt.want, v.Labels(tt.field))
		})
	}
}

func TestFieldValueKinds(t *testing.T) {
	var doc struct {
		Missing models.FieldValue `json:"missing"`
		Null    models.FieldValue `json:"null"`
		List    models.FieldValue `json:"list"`
		Object  models.FieldValue `json:"object"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"null":null,"list":["a"],"object":{"name":"b"}}`), &doc))

	assert.True(t, doc.Missing.IsZero())
	assert.True(t, doc.Null.IsZero())
	assert.Equal(t, models.FieldList, doc.List.Kind)
	assert.Equal(t, models.FieldObject, doc.Object.Kind)
}

func TestFieldValueMarshalKeepsShape(t *testing.T) {
	for _, raw := range []string{`null`, `"kompas"`, `17`, `["a",{"name":"b"}]`, `{"name":"Kompas","id":3}`} {
		var v models.FieldValue
		require.NoError(t, json.Unmarshal([]byte(raw), &v))
		out, err := json.Marshal(v)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}

	out, err := json.Marshal(models.StringField("detik"))
	require.NoError(t, err)
	assert.Equal(t, `"detik"`, string(out))
}

func TestNewArticle(t *testing.T) {
	var doc models.NewsDocument
	require.NoError(t, json.Unmarshal([]byte(`{
		"id":"n1","title":"Banjir","source":["kompas","detik"],
		"annotate":{"sentiment":{"label":"negatif","score":0.8}}
	}`), &doc))

	a := models.NewArticle(doc)
	assert.Equal(t, "kompas", a.Source)
	assert.Equal(t, "negatif", a.Sentiment)
	assert.InDelta(t, 0.8, a.SentimentScore, 1e-9)
	assert.Empty(t, a.Emotion)
}

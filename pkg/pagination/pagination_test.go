package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseQuery(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/items?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	tests := []struct {
		query  string
		want   Params
		offset int
	}{
		{"", Params{Page: 1, Limit: DefaultLimit}, 0},
		{"page=3&limit=10", Params{Page: 3, Limit: 10}, 20},
		{"page=0&limit=0", Params{Page: 1, Limit: DefaultLimit}, 0},
		{"page=-2&limit=500", Params{Page: 1, Limit: MaxLimit}, 0},
		{"page=abc&limit=xyz", Params{Page: 1, Limit: DefaultLimit}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := parseQuery(tt.query)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.offset, got.Offset())
		})
	}
}

func TestOffset_Unbounded(t *testing.T) {
	assert.Equal(t, 0, Params{Page: 4}.Offset())
	assert.Equal(t, 0, Params{}.Offset())
	assert.Equal(t, 0, Params{Page: 0, Limit: 10}.Offset())
}

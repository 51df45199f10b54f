// internal/tests/helpers_test.go
package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type apiError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
	Meta    json.RawMessage `json:"meta"`
}

type response struct {
	Code int
	Body envelope
}

// decode unmarshals the data member into v.
func (r response) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body.Data, v))
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}, headers ...string) response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return response{Code: w.Code, Body: env}
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 3), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type pageReview struct {
	Author string
	Rating int
	Body   string
}

// productPage renders a shop page carrying schema.org Product JSON-LD.
func productPage(base, name, price string, images []string, reviews []pageReview) string {
	var imgs []string
	for _, img := range images {
		imgs = append(imgs, fmt.Sprintf("%q", base+img))
	}
	var rs []string
	for _, r := range reviews {
		rs = append(rs, fmt.Sprintf(`{"@type":"Review","author":{"@type":"Person","name":%q},"reviewRating":{"@type":"Rating","ratingValue":"%d"},"reviewBody":%q,"inLanguage":"en"}`,
			r.Author, r.Rating, r.Body))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en"><head>
<title>%s | Test Shop</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@type":"Product","name":%q,"description":"Hand blown glass hookah.","sku":"CC-1",
 "category":"Chicha","image":[%s],
 "offers":{"@type":"Offer","price":%q,"priceCurrency":"EUR"},
 "review":[%s]}
</script>
</head><body><main><h1>%s</h1></main></body></html>`,
		name, name, strings.Join(imgs, ","), price, strings.Join(rs, ","), name)
}

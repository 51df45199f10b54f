package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aliPage = `<html><head>
<meta property="og:title" content="Chicha Crystal LED 60cm - AliExpress 36">
<meta property="og:image" content="https://ae01.alicdn.com/kf/Sabc.jpg_220x220.jpg">
<meta name="description" content="Shisha en verre avec LED.">
</head>
<body>
<div class="breadcrumb"><a>Maison</a><a>Narguilés</a><a>Chicha Crystal</a></div>
<div class="slider--wrap"><img src="//ae01.alicdn.com/kf/Sabc.jpg_220x220.jpg"><img src="//ae01.alicdn.com/kf/Sdef.png_50x50.png"></div>
<script>window.runParams = {"data":{"priceModule":{"formatedActivityPrice":"34,99 €","formatedPrice":"49,99 €"}}};</script>
<script>var data = {"feedbackModule":{"feedbackList":[
 {"buyerName":"J***n","buyerCountry":"FR","buyerFeedback":"Très belle chicha","buyerEval":100,"evalDate":"12 janv. 2024","images":["https://ae01.alicdn.com/kf/R1.jpg"]},
 {"buyerName":"M***e","buyerCountry":"BE","buyerFeedback":"Moyen","buyerEval":"60","evalDate":"3 févr. 2024","images":[]},
 {"buyerName":"A***","buyerCountry":"ES","buyerFeedback":"broken","buyerEval":0}
], "totalPage": 3}};</script>
</body></html>`

func TestAliExpressCanHandle(t *testing.T) {
	a := NewAliExpressAdapter()
	assert.True(t, a.CanHandle("https://www.aliexpress.com/item/1005006.html"))
	assert.True(t, a.CanHandle("https://fr.aliexpress.com/item/1005006.html"))
	assert.False(t, a.CanHandle("https://aliexpress.com.evil.example/item/1.html"))
	assert.False(t, a.CanHandle("https://example.com/item/1.html"))
}

func TestAliExpressExtractProduct(t *testing.T) {
	a := NewAliExpressAdapter()
	data, err := a.ExtractProduct(mustDoc(t, aliPage), "https://fr.aliexpress.com/item/1005006123456.html?spm=x")
	require.NoError(t, err)

	assert.Equal(t, "Chicha Crystal LED 60cm", data.Name)
	assert.Equal(t, "Shisha en verre avec LED.", data.Description)
	assert.Equal(t, "34,99 €", data.PriceText)
	assert.Equal(t, "Narguilés", data.Category)
	assert.Equal(t, "1005006123456", data.ExternalID)
	assert.Equal(t, []string{
		"https://ae01.alicdn.com/kf/Sabc.jpg",
		"https://ae01.alicdn.com/kf/Sdef.png",
	}, data.Images)
}

func TestAliExpressExtractProductWithoutTitle(t *testing.T) {
	a := NewAliExpressAdapter()
	_, err := a.ExtractProduct(mustDoc(t, `<html><body></body></html>`), "https://fr.aliexpress.com/item/1.html")
	assert.Error(t, err)
}

func TestAliExpressExtractReviews(t *testing.T) {
	a := NewAliExpressAdapter()

	t.Run("embedded feedback list", func(t *testing.T) {
		reviews, err := a.ExtractReviews(mustDoc(t, aliPage), "https://fr.aliexpress.com/item/1.html")
		require.NoError(t, err)
		require.Len(t, reviews, 2)

		assert.Equal(t, ReviewCandidate{
			Text:          "Très belle chicha",
			Rating:        5,
			AuthorName:    "J***n",
			AuthorCountry: "FR",
			Date:          "12 janv. 2024",
			Images:        []string{"https://ae01.alicdn.com/kf/R1.jpg"},
		}, reviews[0])
		assert.Equal(t, 3, reviews[1].Rating)
		assert.False(t, reviews[1].HasPhotos())
	})

	t.Run("markup fallback", func(t *testing.T) {
		html := `<html><body>
<div class="list--itemBox--abc">
  <div class="list--itemInfo--x"><span>K***a</span></div>
  <span class="star--full"></span><span class="star--full"></span><span class="star--full"></span><span class="star--full"></span>
  <div class="list--itemReview--y">Bon produit</div>
  <div class="list--itemThumbnails--z"><img src="https://ae01.alicdn.com/kf/P1.jpg_120x120.jpg"></div>
</div></body></html>`
		reviews, err := a.ExtractReviews(mustDoc(t, html), "https://fr.aliexpress.com/item/1.html")
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		assert.Equal(t, 4, reviews[0].Rating)
		assert.Equal(t, "Bon produit", reviews[0].Text)
		assert.Equal(t, "K***a", reviews[0].AuthorName)
		assert.Equal(t, []string{"https://ae01.alicdn.com/kf/P1.jpg"}, reviews[0].Images)
	})
}

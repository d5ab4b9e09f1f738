package browser

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.Timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", opts.Timeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.Locale != "de-DE" {
		t.Errorf("Expected locale to be de-DE, got %s", opts.Locale)
	}
}

func TestSelector(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`//*[@id="onetrust-reject-all-handler"]`, `xpath=//*[@id="onetrust-reject-all-handler"]`},
		{`/html/body/div[6]/div/button`, `xpath=/html/body/div[6]/div/button`},
		{`(//span[@class="price"])[2]`, `xpath=(//span[@class="price"])[2]`},
		{`xpath=//div`, `xpath=//div`},
		{`.price .amount`, `css=.price .amount`},
		{`css=#price`, `css=#price`},
		{`  #price  `, `css=#price`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Selector(tt.input))
	}
}

const productPage = `<html><body>
<div id="consent"><button class="reject">Ablehnen</button></div>
<div class="product"><span class="price">49,99 €</span><span class="price">59,99 €</span></div>
</body></html>`

func newStaticDriver(t *testing.T) *Static {
	t.Helper()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://shop.example/product",
		httpmock.NewStringResponder(http.StatusOK, productPage))
	transport.RegisterResponder(http.MethodGet, "https://shop.example/gone",
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	return NewStatic(&http.Client{Transport: transport}, nil)
}

func TestStaticPage(t *testing.T) {
	ctx := context.Background()
	driver := newStaticDriver(t)

	session, err := driver.NewSession(ctx, "shop")
	require.NoError(t, err)
	defer session.Close()

	page, err := session.NewPage(ctx)
	require.NoError(t, err)
	defer page.Close()

	t.Run("locators before navigation", func(t *testing.T) {
		_, err := page.Exists(ctx, ".price", 0)
		assert.ErrorIs(t, err, ErrPageNotLoaded)
	})

	require.NoError(t, page.Goto(ctx, "https://shop.example/product", time.Second))

	t.Run("css locator found", func(t *testing.T) {
		ok, err := page.Exists(ctx, "#consent .reject", 0)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, page.Click(ctx, "#consent .reject", time.Second))
	})

	t.Run("css locator missing", func(t *testing.T) {
		ok, err := page.Exists(ctx, "#nothing", time.Second)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = page.Text(ctx, "#nothing", time.Second)
		assert.ErrorIs(t, err, ErrNoElement)
	})

	t.Run("text of first match", func(t *testing.T) {
		text, err := page.Text(ctx, "css=.product .price", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "49,99 €", text)
	})

	t.Run("xpath rejected", func(t *testing.T) {
		_, err := page.Exists(ctx, `//*[@id="consent"]`, 0)
		assert.ErrorIs(t, err, ErrUnsupportedLocator)
	})
}

func TestStaticPageHTTPError(t *testing.T) {
	ctx := context.Background()
	driver := newStaticDriver(t)

	session, err := driver.NewSession(ctx, "shop")
	require.NoError(t, err)

	page, err := session.NewPage(ctx)
	require.NoError(t, err)

	err = page.Goto(ctx, "https://shop.example/gone", time.Second)
	assert.ErrorContains(t, err, "unexpected status 404")

	err = page.Goto(ctx, "https://shop.example/unregistered", time.Second)
	assert.Error(t, err)
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil)).With("run", "r1")

	componentLogger(base).Info("launched")

	assert.Contains(t, buf.String(), `"component":"browser"`)
	assert.Contains(t, buf.String(), `"run":"r1"`)
	assert.NotNil(t, componentLogger(nil))
}

package storefront

import (
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kuitang/storefront-e2e/internal/locator"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv, err := New(Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func fetch(t *testing.T, c *http.Client, req *http.Request) (*http.Response, *goquery.Document) {
	t.Helper()
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return resp, doc
}

func get(t *testing.T, c *http.Client, u string) (*http.Response, *goquery.Document) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, u, nil)
	require.NoError(t, err)
	return fetch(t, c, req)
}

func login(t *testing.T, c *http.Client, base, username, password string) (*http.Response, *goquery.Document) {
	t.Helper()
	form := url.Values{"user-name": {username}, "password": {password}}
	req, err := http.NewRequest(http.MethodPost, base+"/", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return fetch(t, c, req)
}

func TestLoginPage_HasStableTestIDs(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, doc := get(t, newClient(t), ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, sel := range []string{locator.Username, locator.Password, locator.LoginButton} {
		require.Equal(t, 1, doc.Find(sel).Length(), "selector %s", sel)
	}
	require.Zero(t, doc.Find(locator.ErrorBanner).Length())
	require.Zero(t, doc.Find(locator.ErrorIcon).Length())
	require.Zero(t, doc.Find("."+locator.InputErrorClass).Length())
}

func TestLogin_Errors(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	cases := []struct {
		username, password, want string
	}{
		{"", "", MsgUsernameRequired},
		{"", DemoPassword, MsgUsernameRequired},
		{"standard_user", "", MsgPasswordRequired},
		{"standard_user", "wrong_password", MsgNoMatch},
		{"nobody", DemoPassword, MsgNoMatch},
		{"locked_out_user", DemoPassword, MsgLockedOut},
	}
	for _, tc := range cases {
		resp, doc := login(t, newClient(t), ts.URL, tc.username, tc.password)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "/", resp.Request.URL.Path, "user %q stays on the entry route", tc.username)
		require.Equal(t, tc.want, strings.TrimSpace(doc.Find(locator.ErrorBanner).Text()))
		require.Equal(t, 2, doc.Find(locator.ErrorIcon).Length())
		require.True(t, doc.Find(locator.Username).HasClass(locator.InputErrorClass))
		require.True(t, doc.Find(locator.Password).HasClass(locator.InputErrorClass))
		require.Equal(t, 1, doc.Find(locator.ErrorButton).Length())
		val, _ := doc.Find(locator.Username).Attr("value")
		require.Equal(t, tc.username, val)
	}
}

func TestInventory_RequiresLogin(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	resp, doc := get(t, newClient(t), ts.URL+locator.RouteInventory)
	require.Equal(t, "/", resp.Request.URL.Path)
	require.Contains(t, doc.Find(locator.ErrorBanner).Text(), "You can only access '/inventory.html' when you are logged in.")
}

var priceRe = regexp.MustCompile(`^\$\d+\.\d{2}$`)

func TestInventory_StandardUser(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	c := newClient(t)

	resp, doc := login(t, c, ts.URL, "standard_user", DemoPassword)
	require.Equal(t, locator.RouteInventory, resp.Request.URL.Path)
	require.Equal(t, 1, doc.Find(locator.InventoryList).Length())
	require.Equal(t, 1, doc.Find(locator.SortSelect).Length())
	require.Equal(t, 1, doc.Find(locator.BurgerButton).Length())
	require.Equal(t, 1, doc.Find(locator.LogoutLink).Length())
	require.Equal(t, 1, doc.Find(locator.CartLink).Length())
	require.Zero(t, doc.Find(locator.CartBadge).Length())

	rows := doc.Find(locator.InventoryItem)
	require.Equal(t, 6, rows.Length())

	var names []string
	rows.Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find(locator.ItemName).Text())
		names = append(names, name)
		require.Regexp(t, priceRe, strings.TrimSpace(row.Find(locator.ItemPrice).Text()))
		require.NotEmpty(t, strings.TrimSpace(row.Find(locator.ItemDesc).Text()))

		src, _ := row.Find(locator.ItemImage).Attr("src")
		require.NotContains(t, src, "sl-404")

		btn := row.Find(locator.ItemButton)
		require.Equal(t, 1, btn.Length())
		id, _ := btn.Attr(locator.TestIDAttribute)
		require.Equal(t, locator.AddToCartPrefix+locator.Slug(name), id)
		require.Equal(t, "Add to cart", strings.TrimSpace(btn.Text()))
	})
	require.Equal(t, "Sauce Labs Backpack", names[0])
	require.Equal(t, "Test.allTheThings() T-Shirt (Red)", names[5])
}

func TestInventory_ProblemUserGetsBrokenImages(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	c := newClient(t)

	_, doc := login(t, c, ts.URL, "problem_user", DemoPassword)
	doc.Find(locator.InventoryItem + " " + locator.ItemImage).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		require.Equal(t, brokenImage, src)
	})

	resp, err := c.Get(ts.URL + brokenImage)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInventory_ErrorUserMarksBrokenSort(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	_, doc := login(t, newClient(t), ts.URL, "error_user", DemoPassword)
	behaviour, _ := doc.Find(".inventory_container").Attr("data-behaviour")
	require.Equal(t, string(BehaviourSortBroken), behaviour)
}

func TestDetail(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	c := newClient(t)
	login(t, c, ts.URL, "standard_user", DemoPassword)

	resp, doc := get(t, c, ts.URL+locator.RouteDetail+"?id=4")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Sauce Labs Backpack", strings.TrimSpace(doc.Find(locator.DetailName).Text()))
	require.Equal(t, "$29.99", strings.TrimSpace(doc.Find(locator.DetailPrice).Text()))
	require.Equal(t, 1, doc.Find(locator.DetailDesc+" p").Length(), "description is rendered markdown")
	require.Equal(t, 1, doc.Find(locator.DetailButton).Length())
	require.Equal(t, 1, doc.Find(locator.BackToProducts).Length())

	resp, doc = get(t, c, ts.URL+locator.RouteDetail+"?id=99")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "ITEM NOT FOUND", strings.TrimSpace(doc.Find(locator.DetailName).Text()))
}

func TestCart_RendersEveryProductForClientFiltering(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	c := newClient(t)
	login(t, c, ts.URL, "standard_user", DemoPassword)

	resp, doc := get(t, c, ts.URL+locator.RouteCart)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, doc.Find(locator.CartList).Length())
	require.Equal(t, 6, doc.Find(locator.CartItem).Length())
	require.Equal(t, 1, doc.Find(locator.ContinueShopping).Length())
}

func TestLogout_EndsSession(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	c := newClient(t)
	login(t, c, ts.URL, "visual_user", DemoPassword)

	resp, _ := get(t, c, ts.URL+"/logout")
	require.Equal(t, "/", resp.Request.URL.Path)

	resp, _ = get(t, c, ts.URL+locator.RouteInventory)
	require.Equal(t, "/", resp.Request.URL.Path)
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	c := newClient(t)

	resp, err := c.Get(ts.URL + "/static/app.js")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "javascript")

	resp, err = c.Get(ts.URL + "/static/img/sauce-backpack-1200x1500.svg")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	c, err := LoadCatalog()
	require.NoError(t, err)
	require.Equal(t, 6, c.Len())

	first := func(order string) Product { return c.Sorted(order)[0] }
	require.Equal(t, "Sauce Labs Backpack", first("az").Name)
	require.Equal(t, "Test.allTheThings() T-Shirt (Red)", first("za").Name)
	require.Equal(t, "Sauce Labs Onesie", first("lohi").Name)
	require.Equal(t, "Sauce Labs Fleece Jacket", first("hilo").Name)

	p, ok := c.ByID(4)
	require.True(t, ok)
	require.Equal(t, "$29.99", p.PriceText())
	require.Equal(t, "sauce-labs-backpack", p.Slug)

	_, err = ParseCatalog([]byte("products:\n  - id: 1\n    name: A\n  - id: 1\n    name: B\n"))
	require.Error(t, err)
}

func TestAccounts_Authenticate(t *testing.T) {
	t.Parallel()

	a, err := NewAccounts(bcrypt.MinCost)
	require.NoError(t, err)
	require.Len(t, a.Usernames(), 6)

	acct, err := a.Authenticate("performance_glitch_user", DemoPassword)
	require.NoError(t, err)
	require.Equal(t, BehaviourGlitch, acct.Behaviour)

	_, err = a.Authenticate("locked_out_user", "wrong")
	require.ErrorContains(t, err, MsgNoMatch, "bad password is reported before the lock")
}

package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gooze-fr/event-planner/internal/geocode"
	"github.com/gooze-fr/event-planner/internal/handler"
	"github.com/gooze-fr/event-planner/internal/model"
	"github.com/gooze-fr/event-planner/internal/repository"
	"github.com/gooze-fr/event-planner/internal/service"
)

var rosterAction = regexp.MustCompile(`/event-summary/rosters/([0-9a-f-]+)/cars"`)

var defaultCenter = model.LatLng{Lat: -34.397, Lng: 150.644}

func newTestServer(t *testing.T, limiter *handler.RateLimiter) *httptest.Server {
	t.Helper()
	return newTestServerWithMaps(t, limiter, "", "")
}

func newTestServerWithMaps(t *testing.T, limiter *handler.RateLimiter, mapsURL, key string) *httptest.Server {
	t.Helper()
	geo := geocode.NewClient(mapsURL, key, time.Second, zerolog.Nop())
	svc := service.NewEventService(
		repository.NewRosterRepository(),
		geocode.NewCache(geo, defaultCenter, time.Hour),
		service.Options{DefaultCenter: defaultCenter, Zoom: 14, MapsBaseURL: mapsURL, MapsAPIKey: key},
		zerolog.Nop(),
	)
	h := handler.NewEventHandler(svc, 4, zerolog.Nop())
	srv := httptest.NewServer(handler.NewRouter(h, handler.RouterOptions{Log: zerolog.Nop(), Limiter: limiter}))
	t.Cleanup(srv.Close)
	return srv
}

// noRedirect lets tests inspect 303 responses.
func noRedirect(srv *httptest.Server) *http.Client {
	c := srv.Client()
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return c
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func doJSON(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.Client().Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("health: %d %s", resp.StatusCode, body)
	}
}

func TestFormPage(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.Client().Get(srv.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	for _, want := range []string{"Create Your Event", "Pick a category", `value="festival"`, "Create My Event", "www.gooze.fr/"} {
		if !strings.Contains(body, want) {
			t.Errorf("form page missing %q", want)
		}
	}
}

func TestSubmitAndSummary(t *testing.T) {
	srv := newTestServer(t, nil)
	client := noRedirect(srv)

	form := url.Values{
		"eventName":      {"Beach Day"},
		"organizers":     {"Sam"},
		"eventCategory":  {"party"},
		"eventStartDate": {"2024-06-01"},
		"isPublic":       {"on"},
	}
	resp, err := client.PostForm(srv.URL+"/events", form)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/event-summary?eventInfo=") {
		t.Fatalf("unexpected redirect %q", loc)
	}

	resp, err = client.Get(srv.URL + loc)
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	for _, want := range []string{
		"<strong>Event Name:</strong> Beach Day",
		"<strong>Category:</strong> party",
		"<strong>Begin Date:</strong> June 1, 2024",
		"<strong>End Date:</strong> </p>",
		"<strong>Event Url:</strong> www.gooze.fr/beach-day",
		"<strong>Event Privacy:</strong> Public",
		"/event-summary.ics?eventInfo=",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary missing %q", want)
		}
	}
	if strings.Contains(body, "<img") {
		t.Error("no map expected without an API key")
	}
}

func TestSubmitInvalidCategory(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := noRedirect(srv).PostForm(srv.URL+"/events", url.Values{
		"eventName":     {"Gig"},
		"eventCategory": {"concert"},
	})
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, `value="Gig"`) {
		t.Error("form should be re-rendered with the posted values")
	}
}

func TestSummaryWithoutPayload(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.Client().Get(srv.URL + "/event-summary?eventInfo=%7Bbroken")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "<strong>Event Privacy:</strong> Public") {
		t.Error("malformed payload should render defaults")
	}
}

func TestRosterForms(t *testing.T) {
	srv := newTestServer(t, nil)
	client := noRedirect(srv)

	resp, err := client.Get(srv.URL + "/event-summary")
	if err != nil {
		t.Fatal(err)
	}
	m := rosterAction.FindStringSubmatch(readBody(t, resp))
	if m == nil {
		t.Fatal("summary page has no roster form")
	}
	rosterID := m[1]
	carsURL := srv.URL + "/event-summary/rosters/" + rosterID + "/cars"

	resp, err = client.PostForm(carsURL, url.Values{"driver": {"Sam"}, "seats": {"2"}})
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther || !strings.Contains(resp.Header.Get("Location"), "roster="+rosterID) {
		t.Fatalf("expected redirect back to roster, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.PostForm(carsURL, url.Values{"driver": {"Sam"}, "seats": {"3"}})
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusConflict || !strings.Contains(body, "This driver already has a car.") {
		t.Errorf("duplicate driver: %d", resp.StatusCode)
	}

	resp, err = client.PostForm(carsURL, url.Values{"driver": {"Ana"}, "seats": {"lots"}})
	if err != nil {
		t.Fatal(err)
	}
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(body, "positive number of seats") {
		t.Errorf("bad seats: %d", resp.StatusCode)
	}

	resp, err = client.PostForm(carsURL, url.Values{"driver": {"Bo"}, "seats": {"99999999999999999999"}})
	if err != nil {
		t.Fatal(err)
	}
	body = readBody(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(body, "positive number of seats") {
		t.Errorf("overflowing seats: %d", resp.StatusCode)
	}

	var ros model.RosterResponse
	if code := doJSON(t, srv, http.MethodGet, "/api/rosters/"+rosterID, nil, &ros); code != http.StatusOK {
		t.Fatalf("get roster: %d", code)
	}
	if len(ros.Cars) != 1 || ros.Cars[0].Driver != "Sam" {
		t.Fatalf("roster: %+v", ros.Cars)
	}
	carURL := carsURL + "/" + string(ros.Cars[0].ID)

	resp, err = client.PostForm(carURL+"/carpoolers", url.Values{"name": {"Ana"}})
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("join: %d", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/event-summary?roster=" + rosterID)
	if err != nil {
		t.Fatal(err)
	}
	body = readBody(t, resp)
	if !strings.Contains(body, "Seats: 2 (Available: 1)") || !strings.Contains(body, "Ana") {
		t.Error("summary should list the carpooler and remaining seats")
	}

	resp, err = client.PostForm(carURL+"/delete", nil)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete car: %d", resp.StatusCode)
	}
}

func TestExpiredRosterStartsNewOne(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := noRedirect(srv).PostForm(srv.URL+"/event-summary/rosters/gone/cars", url.Values{"driver": {"Sam"}, "seats": {"2"}})
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if !strings.Contains(body, "A new one was started.") || rosterAction.FindStringSubmatch(body) == nil {
		t.Error("expected a fresh roster form")
	}
}

func TestCarpoolAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	var ros model.RosterResponse
	if code := doJSON(t, srv, http.MethodPost, "/api/rosters", nil, &ros); code != http.StatusCreated {
		t.Fatalf("create roster: %d", code)
	}
	base := "/api/rosters/" + ros.ID

	var car model.CarView
	if code := doJSON(t, srv, http.MethodPost, base+"/cars", model.CreateCarRequest{Driver: "Sam", Seats: 2}, &car); code != http.StatusCreated {
		t.Fatalf("add car: %d", code)
	}
	if car.AvailableSeats != 2 {
		t.Errorf("new car should have all seats free, got %d", car.AvailableSeats)
	}
	poolers := base + "/cars/" + string(car.ID) + "/carpoolers"

	var ana model.Carpooler
	if code := doJSON(t, srv, http.MethodPost, poolers, model.JoinCarRequest{Name: "Ana"}, &ana); code != http.StatusCreated {
		t.Fatalf("add Ana: %d", code)
	}
	if code := doJSON(t, srv, http.MethodPost, poolers, model.JoinCarRequest{Name: "Ana"}, nil); code != http.StatusConflict {
		t.Errorf("duplicate carpooler: %d", code)
	}
	if code := doJSON(t, srv, http.MethodPost, poolers, model.JoinCarRequest{Name: "Bo"}, nil); code != http.StatusCreated {
		t.Fatalf("add Bo: %d", code)
	}
	if code := doJSON(t, srv, http.MethodPost, poolers, model.JoinCarRequest{Name: "Cid"}, nil); code != http.StatusConflict {
		t.Errorf("full car: %d", code)
	}
	if code := doJSON(t, srv, http.MethodDelete, poolers+"/"+string(ana.ID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("remove Ana: %d", code)
	}
	if code := doJSON(t, srv, http.MethodPost, poolers, model.JoinCarRequest{Name: "Cid"}, nil); code != http.StatusCreated {
		t.Fatalf("add Cid: %d", code)
	}

	if code := doJSON(t, srv, http.MethodGet, base, nil, &ros); code != http.StatusOK {
		t.Fatalf("get roster: %d", code)
	}
	got := ros.Cars[0].Carpoolers
	if len(got) != 2 || got[0].Name != "Bo" || got[1].Name != "Cid" {
		t.Errorf("carpoolers: %+v", got)
	}

	if code := doJSON(t, srv, http.MethodDelete, base+"/cars/"+string(car.ID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("remove car: %d", code)
	}
	if code := doJSON(t, srv, http.MethodDelete, base+"/cars/"+string(car.ID), nil, nil); code != http.StatusNotFound {
		t.Errorf("second removal: %d", code)
	}
	if code := doJSON(t, srv, http.MethodGet, "/api/rosters/missing", nil, nil); code != http.StatusNotFound {
		t.Errorf("missing roster: %d", code)
	}
}

func TestCreateDraftAPI(t *testing.T) {
	srv := newTestServer(t, nil)

	var out model.DraftResponse
	code := doJSON(t, srv, http.MethodPost, "/api/drafts", map[string]any{
		"eventName":      "Beach Day",
		"eventStartDate": "2024-06-01",
	}, &out)
	if code != http.StatusCreated {
		t.Fatalf("create draft: %d", code)
	}
	if !out.Draft.IsPublic || out.Draft.EventURL != "www.gooze.fr/beach-day" {
		t.Errorf("draft: %+v", out.Draft)
	}
	if !strings.HasPrefix(out.SummaryURL, "/event-summary?eventInfo=") || out.EventInfo == "" {
		t.Errorf("summary url: %q", out.SummaryURL)
	}

	if code := doJSON(t, srv, http.MethodPost, "/api/drafts", map[string]any{"eventUrl": "www.gooze.fr/x"}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown field: %d", code)
	}
}

func TestGeocodeAPIUnavailable(t *testing.T) {
	srv := newTestServer(t, nil)
	if code := doJSON(t, srv, http.MethodGet, "/api/geocode?address=Paris", nil, nil); code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", code)
	}
	if code := doJSON(t, srv, http.MethodGet, "/api/geocode", nil, nil); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestCalendarDownload(t *testing.T) {
	srv := newTestServer(t, nil)

	var out model.DraftResponse
	doJSON(t, srv, http.MethodPost, "/api/drafts", map[string]any{
		"eventName":      "Beach Day",
		"eventStartDate": "2024-06-01",
	}, &out)

	resp, err := srv.Client().Get(srv.URL + "/event-summary.ics?eventInfo=" + url.QueryEscape(out.EventInfo))
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/calendar") {
		t.Fatalf("calendar: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(body, "BEGIN:VEVENT") {
		t.Error("missing VEVENT")
	}

	resp, err = srv.Client().Get(srv.URL + "/event-summary.ics")
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("calendar without a date: %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, handler.NewRateLimiter(0.001, 1))

	if code := doJSON(t, srv, http.MethodPost, "/api/rosters", nil, nil); code != http.StatusCreated {
		t.Fatalf("first request: %d", code)
	}
	if code := doJSON(t, srv, http.MethodPost, "/api/rosters", nil, nil); code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", code)
	}
	if code := doJSON(t, srv, http.MethodGet, "/health", nil, nil); code != http.StatusOK {
		t.Errorf("reads are not limited, got %d", code)
	}
}

func TestSummaryUnknownRoster(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := srv.Client().Get(srv.URL + "/event-summary?roster=swept-away")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	m := rosterAction.FindStringSubmatch(body)
	if m == nil || m[1] == "swept-away" {
		t.Fatal("expected a fresh roster form")
	}
	if code := doJSON(t, srv, http.MethodGet, "/api/rosters/"+m[1], nil, nil); code != http.StatusOK {
		t.Errorf("fresh roster should be live, got %d", code)
	}
}

func TestRosterChangesReuseGeocode(t *testing.T) {
	var hits atomic.Int32
	maps := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":48.85,"lng":2.35}}}]}`))
	}))
	defer maps.Close()
	srv := newTestServerWithMaps(t, nil, maps.URL, "test-key")
	client := srv.Client()

	var draft model.DraftResponse
	if code := doJSON(t, srv, http.MethodPost, "/api/drafts", map[string]any{"eventName": "Dinner", "address": "Paris"}, &draft); code != http.StatusCreated {
		t.Fatalf("create draft: %d", code)
	}

	resp, err := client.Get(srv.URL + draft.SummaryURL)
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	m := rosterAction.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("summary page has no roster form")
	}
	if !strings.Contains(body, "48.85") {
		t.Error("map should be centred on the geocoded address")
	}

	// each post follows the redirect and renders the summary again
	for _, driver := range []string{"Sam", "Ana", "Bo"} {
		resp, err := client.PostForm(srv.URL+"/event-summary/rosters/"+m[1]+"/cars", url.Values{
			"eventInfo": {draft.EventInfo},
			"driver":    {driver},
			"seats":     {"2"},
		})
		if err != nil {
			t.Fatal(err)
		}
		readBody(t, resp)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("add %s: %d", driver, resp.StatusCode)
		}
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("expected 1 geocode lookup, got %d", n)
	}
}

package routing

import "testing"

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	a, err := ParseAllowlistYAML([]byte(`
version: 1
entrypoints:
  server:
    routes:
      - path: /health
        methods: [GET]
        route_class: ops
      - path: /p/api/proposal
        methods: [GET, POST]
        route_class: public_api
`))
	if err != nil {
		t.Fatalf("parse allowlist: %v", err)
	}
	c, err := NewClassifier(a, "server")
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

func TestClassify_Allowlisted(t *testing.T) {
	t.Parallel()
	c := testClassifier(t)

	if got := c.Classify("/health"); got != RouteClassOps {
		t.Fatalf("/health = %q", got)
	}
	if got := c.Classify("/p/api/proposal"); got != RouteClassPublicAPI {
		t.Fatalf("/p/api/proposal = %q", got)
	}
}

func TestClassify_Heuristics(t *testing.T) {
	t.Parallel()
	c := testClassifier(t)

	cases := []struct {
		path string
		want RouteClass
	}{
		{"/p/api/unknown", RouteClassPublicAPI},
		{"/p", RouteClassPublicAPI},
		{"/proposal/api/thing", RouteClassInternalAPI},
		{"/webhooks/autentique", RouteClassWebhook},
		{"/_dev/seed", RouteClassDevOnly},
		{"/assets/logo.png", RouteClassStatic},
		{"/static/app.css", RouteClassStatic},
		{"/", RouteClassUI},
		{"/anything", RouteClassUI},
		{"/pretend", RouteClassUI},
	}
	for _, tc := range cases {
		if got := c.Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestNewClassifier_Errors(t *testing.T) {
	t.Parallel()

	a := Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{
		"server": {Routes: []Route{{Path: "/health", RouteClass: "ops"}}},
	}}

	if _, err := NewClassifier(a, "missing"); err == nil {
		t.Fatal("expected missing entrypoint error")
	}

	bad := Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{
		"server": {Routes: []Route{{Path: "", RouteClass: "ops"}}},
	}}
	if _, err := NewClassifier(bad, "server"); err == nil {
		t.Fatal("expected invalid route error")
	}
}

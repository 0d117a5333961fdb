// Package guard implements the client-side navigation state machine: given
// a target path and the session's authentication state it decides whether
// navigation proceeds, redirects to login, or ends in a 403/404 view.
package guard

import (
	"context"
	"net/url"
	"sync"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/permission"
)

const (
	LoginPath    = "/login"
	RootPath     = "/"
	NotFoundPath = "/404"
)

// DecisionKind enumerates navigation outcomes.
type DecisionKind int

const (
	DecisionAllow DecisionKind = iota
	DecisionRedirect
	DecisionForbidden
	DecisionNotFound
)

// Decision is the outcome of one navigation attempt. Redirects carry the
// target and whether the history entry should be replaced rather than
// pushed; Forbidden and NotFound record the path that triggered them.
type Decision struct {
	Kind    DecisionKind
	To      string
	Query   url.Values
	Replace bool
	Path    string
}

func allow() Decision { return Decision{Kind: DecisionAllow} }

func redirect(to string) Decision { return Decision{Kind: DecisionRedirect, To: to} }

func forbidden(path string) Decision { return Decision{Kind: DecisionForbidden, Path: path} }

func notFound(path string) Decision { return Decision{Kind: DecisionNotFound, Path: path} }

func redirectToLogin(target string) Decision {
	d := redirect(LoginPath)
	if target != "" {
		d.Query = url.Values{"redirect": []string{target}}
	}
	return d
}

// Client is the backend surface the guard consults: the session profile,
// the role-resolved permission tree, the 403-vs-404 probe, and the public
// upload setting shaping the allow-list.
type Client interface {
	Profile(ctx context.Context) (auth.Principal, error)
	Permissions(ctx context.Context) ([]*permission.Node, error)
	KnownMenuPath(ctx context.Context, path string) (bool, error)
	UploadRequireAuth(ctx context.Context) (bool, error)
}

// Guard holds one session's navigation state. All state is per instance;
// a fresh Guard starts every session.
type Guard struct {
	mu sync.Mutex

	client Client
	token  string

	allowFetched bool
	allowList    map[string]bool

	loaded    bool
	principal auth.Principal
	routes    map[string]permission.Route

	knownPaths map[string]bool
}

func New(client Client) *Guard {
	return &Guard{
		client:     client,
		knownPaths: make(map[string]bool),
	}
}

// SetToken marks the session authenticated. An empty token clears it.
func (g *Guard) SetToken(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.token = token
	if token == "" {
		g.loaded = false
		g.routes = nil
		g.principal = auth.Principal{}
	}
}

// Principal returns the loaded session profile, if any.
func (g *Guard) Principal() (auth.Principal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.principal, g.loaded
}

// Routes returns the installed route table.
func (g *Guard) Routes() []permission.Route {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]permission.Route, 0, len(g.routes))
	for _, r := range g.routes {
		out = append(out, r)
	}
	return out
}

// Evaluate runs the ordered navigation rules for the target path. It never
// returns an error: backend failures degrade to a login redirect (profile
// fetch) or a 404 outcome (path probe).
func (g *Guard) Evaluate(ctx context.Context, target string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	allowed := g.allowListed(ctx, target)

	if g.token == "" {
		if allowed {
			return allow()
		}
		return redirectToLogin(target)
	}
	if target == LoginPath {
		return redirect(RootPath)
	}
	if allowed {
		return allow()
	}
	if !g.loaded {
		if err := g.load(ctx); err != nil {
			g.token = ""
			return redirectToLogin(target)
		}
		// Table is populated now; re-enter the same target without
		// growing the history stack.
		d := redirect(target)
		d.Replace = true
		return d
	}
	if _, ok := g.routes[target]; ok {
		return allow()
	}
	return g.disambiguate(ctx, target)
}

// allowListed lazily fetches the session allow-list on first use. When the
// site requires authentication for uploads the public image page and the
// landing page drop off the list.
func (g *Guard) allowListed(ctx context.Context, target string) bool {
	if !g.allowFetched {
		list := []string{LoginPath, RootPath, NotFoundPath, "/publicimg"}
		requireAuth, err := g.client.UploadRequireAuth(ctx)
		if err == nil {
			g.allowFetched = true
			if requireAuth {
				list = []string{LoginPath, NotFoundPath}
			}
		}
		g.allowList = make(map[string]bool, len(list))
		for _, p := range list {
			g.allowList[p] = true
		}
	}
	return g.allowList[target]
}

// load fetches the profile and permission tree once per session and
// installs the derived route table. Caller holds the mutex.
func (g *Guard) load(ctx context.Context) error {
	principal, err := g.client.Profile(ctx)
	if err != nil {
		return err
	}
	tree, err := g.client.Permissions(ctx)
	if err != nil {
		return err
	}
	routes := make(map[string]permission.Route)
	for _, r := range permission.Routes(tree) {
		routes[r.Path] = r
	}
	g.principal = principal
	g.routes = routes
	g.loaded = true
	return nil
}

// disambiguate answers 403 versus 404 for a path outside the installed
// table, memoizing backend answers for the session. Probe failures fall
// back to 404.
func (g *Guard) disambiguate(ctx context.Context, target string) Decision {
	known, cached := g.knownPaths[target]
	if !cached {
		var err error
		known, err = g.client.KnownMenuPath(ctx, target)
		if err != nil {
			return notFound(target)
		}
		g.knownPaths[target] = known
	}
	if known {
		return forbidden(target)
	}
	return notFound(target)
}

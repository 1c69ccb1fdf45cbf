// Package registry defines the external collaborator that produces
// candidate version/dependency data and build recipes for a package name.
// Network transport is explicitly out of scope (spec §1); this package
// specifies only the consumed contract plus a minimal HTTP implementation
// and an in-memory fixture used by tests and demos.
//
// Grounded on original_source/src/PackageDatabase.h's fetch_package_versions
// free function and the `repository` static map it falls back to, and on
// original_source/src/registry.h's wire shape.
package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"pkgforge/src/internal/utils"
)

// ErrNotAvailableForPlatform is returned by Client.FetchRecipe when a
// package has no build recipe for the requested (os, arch) pair.
var ErrNotAvailableForPlatform = fmt.Errorf("recipe not available for platform")

// VersionEntry is one version's dependency list as reported by the
// registry: dep_name -> range expression text, plus the iuse flags this
// version declares (spec §4.6 needs iuse at clause-materialization time,
// earlier than the recipe fetch that otherwise carries it — see
// DESIGN.md's Open Question decision on this).
type VersionEntry struct {
	Version      string
	Dependencies map[string]string
	IUse         []string
}

// Recipe is the build recipe for one (name, version, os, arch).
type Recipe struct {
	InstallScript string            // base64-decoded install script body
	IUse          []string          // USE flags this package declares
	Patches       map[string][]byte // filename -> base64-decoded payload
	Dependencies  map[string]string // name -> range expression, as recorded at recipe time
}

// Client is the interface the core consumes; both operations are treated
// as synchronous, blocking suspension points (spec §5).
type Client interface {
	FetchVersions(ctx context.Context, name string) ([]VersionEntry, error)
	FetchRecipe(ctx context.Context, name, version, os, arch string) (Recipe, error)
}

// CachingClient wraps a Client with the by-(name) and by-(name,version,os,
// arch) caches spec.md §4.3 requires.
type CachingClient struct {
	inner Client

	mu           sync.Mutex
	versionCache map[string][]VersionEntry
	recipeCache  map[string]Recipe
}

// NewCachingClient wraps inner with caches for repeated lookups within one
// run.
func NewCachingClient(inner Client) *CachingClient {
	return &CachingClient{
		inner:        inner,
		versionCache: map[string][]VersionEntry{},
		recipeCache:  map[string]Recipe{},
	}
}

func (c *CachingClient) FetchVersions(ctx context.Context, name string) ([]VersionEntry, error) {
	c.mu.Lock()
	if v, ok := c.versionCache[name]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	entries, err := c.inner.FetchVersions(ctx, name)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.versionCache[name] = entries
	c.mu.Unlock()
	return entries, nil
}

func (c *CachingClient) FetchRecipe(ctx context.Context, name, version, os, arch string) (Recipe, error) {
	key := name + "|" + version + "|" + os + "|" + arch
	c.mu.Lock()
	if r, ok := c.recipeCache[key]; ok {
		c.mu.Unlock()
		return r, nil
	}
	c.mu.Unlock()

	r, err := c.inner.FetchRecipe(ctx, name, version, os, arch)
	if err != nil {
		return Recipe{}, err
	}
	c.mu.Lock()
	c.recipeCache[key] = r
	c.mu.Unlock()
	return r, nil
}

// FetchVersionsConcurrently fetches multiple package names' candidate lists
// in parallel, bounded by the caller-supplied concurrency limit. Grounded
// on aaravmaloo-xe's engine.resolveParallel goroutine-fan-out pattern,
// reimplemented with golang.org/x/sync/errgroup.
func FetchVersionsConcurrently(ctx context.Context, c Client, names []string, limit int) (map[string][]VersionEntry, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	results := make(map[string][]VersionEntry, len(names))
	var mu sync.Mutex
	for _, name := range names {
		name := name
		g.Go(func() error {
			entries, err := c.FetchVersions(gctx, name)
			if err != nil {
				return fmt.Errorf("fetch versions for %s: %w", name, err)
			}
			mu.Lock()
			results[name] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// VersionFixture is one StaticClient version entry: dependencies plus
// declared iuse flags.
type VersionFixture struct {
	Dependencies map[string]string
	IUse         []string
}

// StaticClient is an in-memory fixture client, grounded directly on
// PackageDatabase.h's `repository` test map. Used by the solver's own test
// suite and by demo/dry-run flows.
type StaticClient struct {
	Packages map[string]map[string]VersionFixture // name -> version -> fixture
	Recipes  map[string]Recipe                    // "name|version|os|arch" -> recipe
}

func NewStaticClient() *StaticClient {
	return &StaticClient{
		Packages: map[string]map[string]VersionFixture{},
		Recipes:  map[string]Recipe{},
	}
}

func (s *StaticClient) FetchVersions(_ context.Context, name string) ([]VersionEntry, error) {
	versions := s.Packages[name]
	out := make([]VersionEntry, 0, len(versions))
	for v, fx := range versions {
		out = append(out, VersionEntry{Version: v, Dependencies: fx.Dependencies, IUse: fx.IUse})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func (s *StaticClient) FetchRecipe(_ context.Context, name, version, os, arch string) (Recipe, error) {
	key := name + "|" + version + "|" + os + "|" + arch
	r, ok := s.Recipes[key]
	if !ok {
		return Recipe{}, ErrNotAvailableForPlatform
	}
	return r, nil
}

// HTTPClient implements the registry wire contract of spec §6 with nothing
// beyond net/http and encoding/json, since the actual HTTP transport is an
// out-of-scope external collaborator.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
	// MachineID, if set, is sent as the stable hashed machine identifier
	// header; absence is tolerated by the registry per spec §6.
	MachineID string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, HTTPClient: http.DefaultClient}
}

// versionWire is one version's entry in the fetch_versions response body:
// dependencies keyed by name plus the iuse flags this version declares.
// Extending the flat dep-map the wire contract otherwise describes is the
// registry.VersionEntry.IUse decision recorded in DESIGN.md.
type versionWire struct {
	Dependencies map[string]string `json:"dependencies"`
	IUse         []string          `json:"iuse"`
}

func (h *HTTPClient) FetchVersions(ctx context.Context, name string) ([]VersionEntry, error) {
	var wire map[string]versionWire
	if err := h.getJSON(ctx, fmt.Sprintf("%s/%s", h.BaseURL, name), &wire); err != nil {
		return nil, err
	}
	out := make([]VersionEntry, 0, len(wire))
	for v, entry := range wire {
		out = append(out, VersionEntry{Version: v, Dependencies: entry.Dependencies, IUse: entry.IUse})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type recipeWire struct {
	InstallScript string            `json:"install_script"`
	IUse          []string          `json:"iuse"`
	Patches       map[string]string `json:"patches"`
	Dependencies  map[string]string `json:"dependencies"`
}

func (h *HTTPClient) FetchRecipe(ctx context.Context, name, version, os, arch string) (Recipe, error) {
	var wire recipeWire
	url := fmt.Sprintf("%s/%s/%s/%s/%s", h.BaseURL, name, version, os, arch)
	if err := h.getJSON(ctx, url, &wire); err != nil {
		return Recipe{}, err
	}
	script, err := base64.StdEncoding.DecodeString(wire.InstallScript)
	if err != nil {
		return Recipe{}, fmt.Errorf("decode install_script: %w", err)
	}
	patches := make(map[string][]byte, len(wire.Patches))
	for fname, payload := range wire.Patches {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Recipe{}, fmt.Errorf("decode patch %s: %w", fname, err)
		}
		patches[fname] = data
	}
	return Recipe{
		InstallScript: string(script),
		IUse:          wire.IUse,
		Patches:       patches,
		Dependencies:  wire.Dependencies,
	}, nil
}

func (h *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if h.MachineID != "" {
		req.Header.Set("X-Machine-Id", h.MachineID)
	}
	client := h.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrNotAvailableForPlatform
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry: unexpected status %d for %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	// registry responses occasionally carry a stray diagnostic line ahead
	// of the JSON payload (proxy banners, access logs); strip it the same
	// way aaravmaloo-xe's utils.SanitizeJSON cleans noisy pip output.
	return json.Unmarshal(utils.SanitizeJSON(body), out)
}

package screen

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/vango-dev/appcore/pkg/exchange"
)

type user struct{ ID string }

func newRegistry() *Registry {
	r := NewRegistry(WithFinder(FinderFunc(func(_ context.Context, typ, id string) (any, error) {
		switch {
		case typ == "user" && id == "7":
			return user{ID: id}, nil
		case id == "boom":
			return nil, errors.New("db down")
		default:
			return nil, ErrNotFound
		}
	})))
	r.Home(func(Screen) any { return "home" })
	r.Register("User", func(s Screen) any { return s })
	return r
}

func TestResolvePath(t *testing.T) {
	r := newRegistry()

	tests := []struct {
		path     string
		hasQuery bool
		want     any
	}{
		{"/", false, "home"},
		{"/", true, "home"},
		{"/new/user", false, Screen{Kind: KindNew, Type: "user"}},
		{"/new/USER", false, Screen{Kind: KindNew, Type: "user"}},
		{"/new/order", false, nil},
		{"/edit/user/7", false, Screen{Kind: KindEdit, Type: "user", ID: "7", Entity: user{ID: "7"}}},
		{"/view/user/7", false, Screen{Kind: KindView, Type: "user", ID: "7", Entity: user{ID: "7"}}},
		{"/view/user/8", false, nil},
		{"/user", false, Screen{Kind: KindList, Type: "user"}},
		{"/users", false, Screen{Kind: KindList, Type: "user"}},
		{"/orders", false, nil},
		{"/users", true, nil},
		{"/edit/user/7", true, nil},
		{"/a/b/c/d", false, nil},
	}

	for _, tt := range tests {
		got, err := r.ResolvePath(context.Background(), tt.path, tt.hasQuery)
		if err != nil {
			t.Errorf("ResolvePath(%q): %v", tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolvePath(%q, %v) = %#v, want %#v", tt.path, tt.hasQuery, got, tt.want)
		}
	}
}

func TestResolveFinderError(t *testing.T) {
	r := newRegistry()
	if _, err := r.ResolvePath(context.Background(), "/edit/user/boom", false); err == nil {
		t.Fatal("finder failure should be returned")
	}
}

func TestResolveWithoutFinderOrHome(t *testing.T) {
	r := NewRegistry()
	r.Register("user", func(s Screen) any { return s })

	for _, path := range []string{"/", "/edit/user/7", "/view/user/7"} {
		got, err := r.ResolvePath(context.Background(), path, false)
		if err != nil || got != nil {
			t.Errorf("ResolvePath(%q) = %v, %v; want nil", path, got, err)
		}
	}
	if r.Types() != 1 {
		t.Errorf("Types = %d", r.Types())
	}
}

func TestResolveExchange(t *testing.T) {
	r := newRegistry()

	x := exchange.New(httptest.NewRecorder(), httptest.NewRequest("GET", "/users", nil))
	got, err := r.Resolve(x)
	if err != nil || got != (Screen{Kind: KindList, Type: "user"}) {
		t.Errorf("Resolve = %v, %v", got, err)
	}

	x = exchange.New(httptest.NewRecorder(), httptest.NewRequest("GET", "/users?page=2", nil))
	got, err = r.Resolve(x)
	if err != nil || got != nil {
		t.Errorf("Resolve with query = %v, %v", got, err)
	}
}

func TestKindString(t *testing.T) {
	if KindEdit.String() != "edit" || Kind(99).String() != "unknown" {
		t.Error("Kind.String mismatch")
	}
}

package contract

import (
	"errors"
	"testing"
)

func TestBackendAlias(t *testing.T) {
	t.Parallel()

	cases := map[Environment]string{
		EnvProduction:  "prod",
		EnvStaging:     "qa",
		EnvDevelopment: "dev",
	}
	for env, want := range cases {
		got, err := env.BackendAlias()
		if err != nil {
			t.Errorf("BackendAlias(%s) error = %v", env, err)
			continue
		}
		if got != want {
			t.Errorf("BackendAlias(%s) = %q, want %q", env, got, want)
		}
	}
}

func TestBackendAliasUnknown(t *testing.T) {
	t.Parallel()

	for _, env := range []Environment{EnvUnknown, Environment("blue"), Environment("")} {
		if _, err := env.BackendAlias(); !errors.Is(err, ErrUnknownEnvironment) {
			t.Errorf("BackendAlias(%q) error = %v, want ErrUnknownEnvironment", env, err)
		}
	}
}

func TestFallbackExtraction(t *testing.T) {
	t.Parallel()

	ex := FallbackExtraction()
	if ex.Category != CategoryUnknown || ex.EntityType != EntityUnknown || ex.Environment != EnvUnknown {
		t.Fatalf("fallback must be fully unknown, got %+v", ex)
	}
	if len(ex.EntityIDs) != 0 || ex.InitialResponse != "" {
		t.Fatalf("fallback must carry no speculative content, got %+v", ex)
	}
}

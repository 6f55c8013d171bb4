package catalog

import "testing"

func TestAccessFilterSuperOwnerUnrestricted(t *testing.T) {
	filter := AccessFilter{SuperOwner: "cn=Super,ou=groups", PublicOwner: "public"}
	got := filter.Build([]string{"cn=Other,ou=groups", "cn=Super,ou=groups"})
	if got != "" {
		t.Fatalf("expected unrestricted filter for super owner, got %q", got)
	}
}

func TestAccessFilterPublicAndGroups(t *testing.T) {
	filter := AccessFilter{PublicOwner: "public"}
	got := filter.Build([]string{"grpA", "grpB"})
	want := `OwnerPrincipal:("public" OR "grpA" OR "grpB")`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAccessFilterDeduplicatesPreservingOrder(t *testing.T) {
	filter := AccessFilter{PublicOwner: "grpA"}
	got := filter.Build([]string{"grpA", "grpB", "grpB"})
	want := `OwnerPrincipal:("grpA" OR "grpB")`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAccessFilterTrimsPrincipals(t *testing.T) {
	filter := AccessFilter{PublicOwner: "  public  "}
	got := filter.Build(nil)
	want := `OwnerPrincipal:("public")`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAccessFilterEmptyPrincipalsFailsClosed(t *testing.T) {
	filter := AccessFilter{}
	got := filter.Build(nil)
	if got != MatchNothing {
		t.Fatalf("expected match-nothing filter, got %q", got)
	}
}

func TestAccessFilterSuperOwnerNotConfigured(t *testing.T) {
	// An empty super-owner setting must never match an empty group name.
	filter := AccessFilter{PublicOwner: "public"}
	got := filter.Build([]string{""})
	want := `OwnerPrincipal:("public")`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

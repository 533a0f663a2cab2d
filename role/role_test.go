package role

import "testing"

func TestRankOrdering(t *testing.T) {
	if Rank(Host) != 0 || Rank(OrgAdmin) != 1 || Rank(SuperAdmin) != 2 {
		t.Fatalf("unexpected ranks: host=%d org_admin=%d super_admin=%d",
			Rank(Host), Rank(OrgAdmin), Rank(SuperAdmin))
	}
	if Rank(Role("moderator")) != -1 {
		t.Fatalf("unknown role must rank -1, got %d", Rank(Role("moderator")))
	}
	if Rank(Role("")) != -1 {
		t.Fatalf("empty role must rank -1, got %d", Rank(Role("")))
	}
}

func TestHasPermissionGrid(t *testing.T) {
	known := []Role{Host, OrgAdmin, SuperAdmin}

	for _, user := range known {
		for _, required := range known {
			want := Rank(user) >= Rank(required)
			if got := HasPermission(user, required); got != want {
				t.Fatalf("HasPermission(%s, %s) = %v, want %v", user, required, got, want)
			}
		}
	}
}

func TestHasPermissionUnknownRoles(t *testing.T) {
	cases := []struct {
		name     string
		user     Role
		required Role
	}{
		{"unknown user", Role("wizard"), Host},
		{"unknown required", SuperAdmin, Role("wizard")},
		{"both unknown distinct", Role("wizard"), Role("goblin")},
		{"both unknown identical", Role("wizard"), Role("wizard")},
		{"empty user", Role(""), Host},
		{"empty both", Role(""), Role("")},
	}

	for _, tc := range cases {
		if HasPermission(tc.user, tc.required) {
			t.Fatalf("%s: HasPermission(%q, %q) must be false", tc.name, tc.user, tc.required)
		}
	}
}

func TestParse(t *testing.T) {
	if r, ok := Parse("org_admin"); !ok || r != OrgAdmin {
		t.Fatalf("Parse(org_admin) = %q, %v", r, ok)
	}
	if _, ok := Parse("root"); ok {
		t.Fatal("Parse(root) must not be recognized")
	}
}

func TestHasGameAccess(t *testing.T) {
	grants := []GameGrant{
		{Name: "trivia", PermissionLevel: "play"},
		{Name: "quiz-battle", PermissionLevel: "manage"},
	}

	if !HasGameAccess(grants, "trivia") {
		t.Fatal("expected access to trivia")
	}
	if HasGameAccess(grants, "poker") {
		t.Fatal("unexpected access to poker")
	}
	if HasGameAccess(nil, "trivia") {
		t.Fatal("nil grants must not grant access")
	}
	if HasGameAccess(grants, "") {
		t.Fatal("empty game name must not grant access")
	}
}

func TestAllowedGames(t *testing.T) {
	grants := []GameGrant{{Name: "trivia"}, {Name: "quiz-battle"}}
	names := AllowedGames(grants)
	if len(names) != 2 || names[0] != "trivia" || names[1] != "quiz-battle" {
		t.Fatalf("unexpected allowed games: %v", names)
	}
	if AllowedGames(nil) != nil {
		t.Fatal("nil grants must yield nil names")
	}
}

func TestDerive(t *testing.T) {
	host := Derive(Host)
	if !host.CanCreateSessions || host.CanManageTeams || host.CanViewAnalytics || host.IsAdmin {
		t.Fatalf("unexpected host capabilities: %+v", host)
	}

	org := Derive(OrgAdmin)
	if !org.CanCreateSessions || !org.CanManageTeams || !org.CanViewAnalytics || org.IsAdmin {
		t.Fatalf("unexpected org_admin capabilities: %+v", org)
	}

	super := Derive(SuperAdmin)
	if !super.CanCreateSessions || !super.CanManageTeams || !super.CanViewAnalytics || !super.IsAdmin {
		t.Fatalf("unexpected super_admin capabilities: %+v", super)
	}

	if Derive(Role("wizard")) != (Capabilities{}) {
		t.Fatal("unknown role must derive zero capabilities")
	}
}

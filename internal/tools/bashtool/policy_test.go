package bashtool

import "testing"

func TestPolicyDeniesDefaultFloorRegardlessOfAllow(t *testing.T) {
	p := Policy{Allow: []string{"*"}}
	d := p.Evaluate("rm -rf /", "/tmp")
	if d.Allowed {
		t.Fatalf("expected rm -rf to be denied by the default floor, got allowed: %s", d.Reason)
	}
}

func TestPolicyAllowsMatchingGlob(t *testing.T) {
	p := Policy{Allow: []string{"git *", "ls"}}
	d := p.Evaluate("git status", "/tmp")
	if !d.Allowed {
		t.Fatalf("expected git status to be allowed, got: %s", d.Reason)
	}
	d = p.Evaluate("ls", "/tmp")
	if !d.Allowed {
		t.Fatalf("expected bare ls to be allowed, got: %s", d.Reason)
	}
}

func TestPolicyDeniesUnmatchedCommand(t *testing.T) {
	p := Policy{Allow: []string{"git *"}}
	d := p.Evaluate("curl http://example.com", "/tmp")
	if d.Allowed {
		t.Fatalf("expected curl to be denied with no matching allow rule")
	}
}

func TestPolicyExplicitDenyOverridesAllow(t *testing.T) {
	p := Policy{Allow: []string{"git *"}, Deny: []string{"git push*"}}
	d := p.Evaluate("git push origin main", "/tmp")
	if d.Allowed {
		t.Fatalf("expected git push to be denied by explicit deny rule")
	}
}

func TestPolicyRestrictsWorkingDirectory(t *testing.T) {
	p := Policy{Allow: []string{"ls"}, WorkDirs: []string{"/workspace"}}
	if p.Evaluate("ls", "/workspace/project").Allowed == false {
		t.Fatalf("expected subdirectory of an allowed workdir to be permitted")
	}
	if p.Evaluate("ls", "/etc").Allowed {
		t.Fatalf("expected a directory outside WorkDirs to be denied")
	}
}

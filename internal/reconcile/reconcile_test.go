package reconcile

import (
	"encoding/json"
	"reflect"
	"testing"
)

// mustDecode parses JSON into the generic any representation used by Reconcile.
func mustDecode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("bad test JSON %q: %v", raw, err)
	}
	return v
}

func TestReconcileShapeInvariant(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		candidate string
	}{
		{
			name:      "candidate with extra and missing fields",
			template:  `{"fullName":"","email":"","skills":[],"education":{"school":"","degree":""}}`,
			candidate: `{"fullName":"Jane","unexpected":"x","education":"not an object"}`,
		},
		{
			name:      "candidate is an array",
			template:  `{"fullName":"","email":""}`,
			candidate: `[1,2,3]`,
		},
		{
			name:      "candidate is a scalar",
			template:  `{"fullName":"","nested":{"a":"","b":null}}`,
			candidate: `"just a string"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl := mustDecode(t, tt.template)
			result := Reconcile(tmpl, mustDecode(t, tt.candidate))
			assertSameShape(t, tmpl, result)
		})
	}
}

// assertSameShape checks the result has exactly the template's key set and
// nesting at every object level.
func assertSameShape(t *testing.T, tmpl, result any) {
	t.Helper()

	tmplObj, ok := tmpl.(map[string]any)
	if !ok {
		return
	}
	resObj, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected object result, got %T", result)
	}
	if len(resObj) != len(tmplObj) {
		t.Fatalf("key count mismatch: template %d, result %d", len(tmplObj), len(resObj))
	}
	for k, tv := range tmplObj {
		rv, exists := resObj[k]
		if !exists {
			t.Fatalf("result missing template key %q", k)
		}
		if _, isObj := tv.(map[string]any); isObj {
			assertSameShape(t, tv, rv)
		}
	}
}

func TestReconcileIdempotentOnExactMatch(t *testing.T) {
	raw := `{"fullName":"Jane Doe","email":"jane@x.com","skills":["Go","SQL"],"education":{"school":"MIT","degree":"BSc"}}`
	tmpl := mustDecode(t, `{"fullName":"","email":"","skills":[],"education":{"school":"","degree":""}}`)
	cand := mustDecode(t, raw)

	result := Reconcile(tmpl, cand)
	if !reflect.DeepEqual(result, mustDecode(t, raw)) {
		t.Errorf("exact-shape candidate changed: got %#v", result)
	}
}

func TestReconcileEmptyCandidateYieldsClone(t *testing.T) {
	tmpl := mustDecode(t, `{"fullName":"","email":null,"skills":[],"experience":[{"company":"","role":""}],"links":{"github":"","site":""}}`)

	result := Reconcile(tmpl, mustDecode(t, `{}`))

	// Record arrays follow candidate cardinality, so the expected clone has
	// zero experience entries; everything else keeps template defaults.
	want := mustDecode(t, `{"fullName":"","email":null,"skills":[],"experience":[],"links":{"github":"","site":""}}`)
	if !reflect.DeepEqual(result, want) {
		t.Errorf("got %#v, want %#v", result, want)
	}
}

func TestReconcileFuzzyRecovery(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		candidate string
		want      string
	}{
		{
			name:      "underscore and casing variants",
			template:  `{"fullName":"","email":""}`,
			candidate: `{"full_name":"Jane Doe","Email":"jane@x.com"}`,
			want:      `{"fullName":"Jane Doe","email":"jane@x.com"}`,
		},
		{
			name:      "substring containment",
			template:  `{"phone":""}`,
			candidate: `{"phone_number":"+1-555-0100"}`,
			want:      `{"phone":"+1-555-0100"}`,
		},
		{
			name:      "fuzzy match wraps into array field",
			template:  `{"skills":[]}`,
			candidate: `{"skill_list":"Python"}`,
			want:      `{"skills":["Python"]}`,
		},
		{
			name:      "exact match is not overwritten by fuzzy",
			template:  `{"email":""}`,
			candidate: `{"email":"real@x.com","e_mail":"decoy@x.com"}`,
			want:      `{"email":"real@x.com"}`,
		},
		{
			name:      "object fields are not fuzzy targets",
			template:  `{"education":{"school":""}}`,
			candidate: `{"Education":"BSc in CS"}`,
			want:      `{"education":{"school":""}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Reconcile(mustDecode(t, tt.template), mustDecode(t, tt.candidate))
			want := mustDecode(t, tt.want)
			if !reflect.DeepEqual(result, want) {
				t.Errorf("got %#v, want %#v", result, want)
			}
		})
	}
}

func TestReconcileRecordArrayCardinality(t *testing.T) {
	tmpl := mustDecode(t, `{"exp":[{"company":"","role":""}]}`)
	cand := mustDecode(t, `{"exp":[{"company":"A","role":"Eng"},{"company":"B","role":"Mgr"}]}`)

	result := Reconcile(tmpl, cand).(map[string]any)
	exp := result["exp"].([]any)
	if len(exp) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(exp))
	}
	first := exp[0].(map[string]any)
	if first["company"] != "A" || first["role"] != "Eng" {
		t.Errorf("first entry not filled: %#v", first)
	}
	second := exp[1].(map[string]any)
	if second["company"] != "B" || second["role"] != "Mgr" {
		t.Errorf("second entry not filled: %#v", second)
	}
}

func TestReconcileRecordArrayElementShape(t *testing.T) {
	tmpl := mustDecode(t, `{"exp":[{"company":"","role":"","years":null}]}`)
	cand := mustDecode(t, `{"exp":[{"company":"A","extra":"dropped"},{"role":"Mgr"}]}`)

	result := Reconcile(tmpl, cand).(map[string]any)
	for i, elem := range result["exp"].([]any) {
		obj := elem.(map[string]any)
		if len(obj) != 3 {
			t.Errorf("entry %d: expected 3 keys, got %#v", i, obj)
		}
	}
}

func TestReconcileScalarToArrayCoercion(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{"scalar wrapped", `{"skills":"Python"}`, `{"skills":["Python"]}`},
		{"null becomes empty", `{"skills":null}`, `{"skills":[]}`},
		{"absent becomes empty", `{}`, `{"skills":[]}`},
		{"array copied verbatim", `{"skills":["Go","Rust"]}`, `{"skills":["Go","Rust"]}`},
	}

	tmpl := mustDecode(t, `{"skills":[]}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Reconcile(tmpl, mustDecode(t, tt.candidate))
			want := mustDecode(t, tt.want)
			if !reflect.DeepEqual(result, want) {
				t.Errorf("got %#v, want %#v", result, want)
			}
		})
	}
}

func TestReconcileFlattenedRecordList(t *testing.T) {
	tmpl := mustDecode(t, `{"exp":[{"company":"","role":""}]}`)
	cand := mustDecode(t, `{"exp":{"company":"A","role":"Eng"}}`)

	result := Reconcile(tmpl, cand)
	want := mustDecode(t, `{"exp":[{"company":"A","role":"Eng"}]}`)
	if !reflect.DeepEqual(result, want) {
		t.Errorf("got %#v, want %#v", result, want)
	}
}

func TestReconcileNestedObjectRules(t *testing.T) {
	tmpl := mustDecode(t, `{"contact":{"email":"","phone":""}}`)

	t.Run("object candidate merges recursively", func(t *testing.T) {
		cand := mustDecode(t, `{"contact":{"email":"a@b.c","junk":1}}`)
		want := mustDecode(t, `{"contact":{"email":"a@b.c","phone":""}}`)
		if got := Reconcile(tmpl, cand); !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("non-object candidate keeps defaults", func(t *testing.T) {
		cand := mustDecode(t, `{"contact":"call me"}`)
		want := mustDecode(t, `{"contact":{"email":"","phone":""}}`)
		if got := Reconcile(tmpl, cand); !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})
}

func TestReconcileNullTemplateLeaf(t *testing.T) {
	tmpl := mustDecode(t, `{"middleName":null}`)

	if got := Reconcile(tmpl, mustDecode(t, `{"middleName":"Q"}`)).(map[string]any); got["middleName"] != "Q" {
		t.Errorf("null placeholder should accept a value, got %#v", got)
	}
	if got := Reconcile(tmpl, mustDecode(t, `{}`)).(map[string]any); got["middleName"] != nil {
		t.Errorf("null placeholder should survive absence, got %#v", got)
	}
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	tmplRaw := `{"exp":[{"company":""}],"skills":[]}`
	candRaw := `{"exp":[{"company":"A"}],"skills":"Go"}`
	tmpl := mustDecode(t, tmplRaw)
	cand := mustDecode(t, candRaw)

	_ = Reconcile(tmpl, cand)

	if !reflect.DeepEqual(tmpl, mustDecode(t, tmplRaw)) {
		t.Error("template mutated")
	}
	if !reflect.DeepEqual(cand, mustDecode(t, candRaw)) {
		t.Error("candidate mutated")
	}
}

func TestReconcileFuzzyTieBreaksDeterministically(t *testing.T) {
	// "id" is a substring of both template keys; the first in sorted key
	// order (credentialId) wins, and repeated runs agree.
	tmpl := mustDecode(t, `{"credentialId":"","id":""}`)
	cand := mustDecode(t, `{"ID":"42"}`)

	first := Reconcile(tmpl, cand)
	for range 10 {
		if got := Reconcile(tmpl, cand); !reflect.DeepEqual(got, first) {
			t.Fatalf("non-deterministic result: %#v vs %#v", got, first)
		}
	}
	if first.(map[string]any)["credentialId"] != "42" {
		t.Errorf("expected first sorted template key to win, got %#v", first)
	}
}

package export

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/skilllog/logstore"
)

func decode(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON %s: %v", data, err)
	}
	return out
}

func reportWith(msgs ...[]any) logstore.Report {
	r := logstore.Report{
		SkillInfo:   logstore.SkillInfo{Identifier: "s1", Name: "Checkout", Version: "2.0.1"},
		BrowserInfo: logstore.BrowserInfo{UserAgent: "Chrome", Version: "120", Height: 800, Width: 1280},
		Version:     logstore.FormatVersion,
		Initialized: 1708700000000,
	}
	for _, m := range msgs {
		r.Logs = append(r.Logs, logstore.Record{Type: logstore.TypeLog, Message: m, Trace: []string{"main.run (main.go:10)"}, Timestamp: 1708700000001})
	}
	return r
}

func messageOf(t *testing.T, out map[string]any, i int) []any {
	t.Helper()
	logs := out["logs"].([]any)
	return logs[i].(map[string]any)["message"].([]any)
}

func TestSerialize_ReportShape(t *testing.T) {
	r := reportWith([]any{"hello"})
	r.Snapshot = "<div>Lorem</div>"
	data, err := Serialize(r)
	if err != nil {
		t.Fatal(err)
	}
	out := decode(t, data)

	for _, k := range []string{"skillInfo", "browserInfo", "version", "initialized", "logs", "snapshot"} {
		if _, ok := out[k]; !ok {
			t.Errorf("missing key %q in %s", k, data)
		}
	}
	skill := out["skillInfo"].(map[string]any)
	if skill["identifier"] != "s1" || skill["name"] != "Checkout" || skill["version"] != "2.0.1" {
		t.Errorf("skillInfo: %v", skill)
	}
	if out["version"] != logstore.FormatVersion {
		t.Errorf("version: got %v", out["version"])
	}
	rec := out["logs"].([]any)[0].(map[string]any)
	if rec["type"] != "log" || rec["url"] != "" || rec["timestamp"].(float64) != 1708700000001 {
		t.Errorf("record: %v", rec)
	}
	if _, ok := rec["snapshot"]; ok {
		t.Errorf("record without snapshot has snapshot key: %v", rec)
	}
}

func TestSerialize_NoSnapshotKeyWithoutError(t *testing.T) {
	data, err := Serialize(reportWith([]any{"x"}))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := decode(t, data)["snapshot"]; ok {
		t.Fatalf("snapshot present: %s", data)
	}
}

func TestSerialize_EmptyReport(t *testing.T) {
	data, err := Serialize(reportWith())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"logs":[]`) {
		t.Fatalf("empty logs should encode as []: %s", data)
	}
}

type node struct {
	Name string `json:"name"`
	Self *node  `json:"self"`
}

func TestSerialize_SelfReferenceTerminates(t *testing.T) {
	a := map[string]any{"name": "a"}
	a["self"] = a

	data, err := Serialize(reportWith([]any{a}))
	if err != nil {
		t.Fatal(err)
	}
	msg := messageOf(t, decode(t, data), 0)
	obj := msg[0].(map[string]any)
	if obj["name"] != "a" {
		t.Fatalf("name: got %v", obj["name"])
	}
	if _, ok := obj["self"]; ok {
		t.Fatalf("repeated reference not omitted: %s", data)
	}
}

func TestSerialize_PointerCycle(t *testing.T) {
	n := &node{Name: "root"}
	n.Self = n

	data, err := Serialize(reportWith([]any{n}))
	if err != nil {
		t.Fatal(err)
	}
	obj := messageOf(t, decode(t, data), 0)[0].(map[string]any)
	if obj["name"] != "root" {
		t.Fatalf("name: got %v", obj)
	}
	if _, ok := obj["self"]; ok {
		t.Fatalf("cycle not pruned: %s", data)
	}
}

func TestSerialize_SharedReferenceAcrossRecords(t *testing.T) {
	shared := map[string]any{"k": 1}
	data, err := Serialize(reportWith([]any{shared}, []any{shared, "tail"}))
	if err != nil {
		t.Fatal(err)
	}
	out := decode(t, data)
	if messageOf(t, out, 0)[0] == nil {
		t.Fatal("first occurrence dropped")
	}
	second := messageOf(t, out, 1)
	if len(second) != 2 || second[0] != nil || second[1] != "tail" {
		t.Fatalf("second record message: %v", second)
	}
}

func TestSerialize_SliceCycle(t *testing.T) {
	s := make([]any, 2)
	s[0] = "first"
	s[1] = s

	data, err := Serialize(reportWith([]any{s}))
	if err != nil {
		t.Fatal(err)
	}
	arr := messageOf(t, decode(t, data), 0)[0].([]any)
	if len(arr) != 2 || arr[0] != "first" || arr[1] != nil {
		t.Fatalf("slice cycle: %v", arr)
	}
}

func TestSerialize_UnencodableValues(t *testing.T) {
	ch := make(chan int)
	fn := func() {}
	at := time.Date(2024, 2, 23, 15, 0, 0, 0, time.UTC)
	data, err := Serialize(reportWith([]any{
		errors.New("boom"),
		math.NaN(),
		math.Inf(1),
		ch,
		map[string]any{"fn": fn, "keep": true},
		at,
		nil,
		map[int]string{7: "seven"},
	}))
	if err != nil {
		t.Fatal(err)
	}
	msg := messageOf(t, decode(t, data), 0)
	if len(msg) != 8 {
		t.Fatalf("message count changed: %v", msg)
	}
	if msg[0] != "boom" {
		t.Errorf("error: got %v", msg[0])
	}
	if msg[1] != nil || msg[2] != nil {
		t.Errorf("non-finite floats: got %v %v", msg[1], msg[2])
	}
	if msg[3] != nil {
		t.Errorf("channel: got %v", msg[3])
	}
	obj := msg[4].(map[string]any)
	if _, ok := obj["fn"]; ok || obj["keep"] != true {
		t.Errorf("func field: got %v", obj)
	}
	if msg[5] != "2024-02-23T15:00:00Z" {
		t.Errorf("time: got %v", msg[5])
	}
	if msg[6] != nil {
		t.Errorf("nil: got %v", msg[6])
	}
	if m := msg[7].(map[string]any); m["7"] != "seven" {
		t.Errorf("int keys: got %v", m)
	}
}

func TestSerialize_StructTags(t *testing.T) {
	type payload struct {
		Shown   string `json:"shown"`
		Hidden  string `json:"-"`
		Empty   string `json:"empty,omitempty"`
		Plain   int
		private int
	}
	data, err := Serialize(reportWith([]any{payload{Shown: "a", Hidden: "b", Plain: 3, private: 4}}))
	if err != nil {
		t.Fatal(err)
	}
	obj := messageOf(t, decode(t, data), 0)[0].(map[string]any)
	if obj["shown"] != "a" || obj["Plain"].(float64) != 3 {
		t.Fatalf("fields: %v", obj)
	}
	for _, k := range []string{"Hidden", "-", "empty", "private"} {
		if _, ok := obj[k]; ok {
			t.Errorf("unexpected key %q in %v", k, obj)
		}
	}
}

type auditFields struct {
	Actor string `json:"actor"`
	At    int    `json:"at"`
}

type Base struct {
	ID   string `json:"id"`
	Note string `json:"note,omitempty"`
}

type orderEvent struct {
	Base
	*auditFields
	Named  Base `json:"named"`
	Amount int  `json:"amount"`
	ID     string
}

func TestSerialize_EmbeddedStructsFlatten(t *testing.T) {
	ev := orderEvent{
		Base:        Base{ID: "inner", Note: "n"},
		auditFields: &auditFields{Actor: "bot", At: 3},
		Named:       Base{ID: "nested"},
		Amount:      42,
		ID:          "outer",
	}
	want, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var wantObj map[string]any
	json.Unmarshal(want, &wantObj)

	data, err := Serialize(reportWith([]any{ev}))
	if err != nil {
		t.Fatal(err)
	}
	got := messageOf(t, decode(t, data), 0)[0].(map[string]any)

	for k, v := range wantObj {
		if gv, ok := got[k]; !ok || !equalJSON(t, gv, v) {
			t.Errorf("key %q: got %v, want %v", k, gv, v)
		}
	}
	if len(got) != len(wantObj) {
		t.Errorf("keys: got %v, want %v", got, wantObj)
	}
	if _, nested := got["Base"]; nested {
		t.Error("embedded struct encoded under its type name")
	}
}

func equalJSON(t *testing.T, a, b any) bool {
	t.Helper()
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	return string(ja) == string(jb)
}

func TestSerialize_DoesNotMutateReport(t *testing.T) {
	a := map[string]any{}
	a["self"] = a
	r := reportWith([]any{a})
	if _, err := Serialize(r); err != nil {
		t.Fatal(err)
	}
	if _, ok := r.Logs[0].Message[0].(map[string]any)["self"]; !ok {
		t.Fatal("stored message mutated by serialization")
	}
}

func TestString(t *testing.T) {
	store := logstore.New(logstore.Metadata{Skill: logstore.SkillInfo{Identifier: "s1"}})
	store.Append(logstore.Record{Type: logstore.TypeInfo, Message: []any{"hi"}})

	s, err := String(store)
	if err != nil {
		t.Fatal(err)
	}
	if msg := messageOf(t, decode(t, []byte(s)), 0); msg[0] != "hi" {
		t.Fatalf("message: %v", msg)
	}

	var nilStore *logstore.Store
	if _, err := String(nilStore); !errors.Is(err, logstore.ErrUninitialized) {
		t.Fatalf("nil store: got %v", err)
	}
}

package planner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pohaoc29/GroceryShopperAI/internal/llm"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

// scripted answers each prompt by matching a phrase of its system turn.
type scripted struct {
	replies map[string]string
	err     error
	prompts []string
}

func (s *scripted) Complete(_ context.Context, transcript []llm.Turn, _ llm.Params, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.prompts = append(s.prompts, transcript[1].Content)
	for phrase, reply := range s.replies {
		if strings.Contains(transcript[0].Content, phrase) {
			return reply, nil
		}
	}
	return "I am not sure.", nil
}

var history = []models.Message{
	{Content: "BBQ on Saturday?\nwho is in"},
	{Content: "alice brings the grill"},
	{Content: "Sounds fun!", IsBot: true},
}

func TestFormatHistory(t *testing.T) {
	want := "[User] BBQ on Saturday? who is in\n[User] alice brings the grill\n[Assistant] Sounds fun!"
	if got := FormatHistory(history); got != want {
		t.Fatalf("FormatHistory = %q", got)
	}
}

func TestGoal(t *testing.T) {
	p := New(&scripted{replies: map[string]string{
		"main event goal": "Sure! ```json\n{\"goal\": \"BBQ party this Saturday\"}\n```",
	}}, "", llm.Params{})
	goal, err := p.Goal(context.Background(), history)
	if err != nil {
		t.Fatal(err)
	}
	if goal != "BBQ party this Saturday" {
		t.Fatalf("goal = %q", goal)
	}

	p = New(&scripted{}, "", llm.Params{})
	if goal, _ := p.Goal(context.Background(), history); goal != "" {
		t.Fatalf("unparseable reply should give empty goal, got %q", goal)
	}
}

func TestAssignedMembersFiltersUnknownNames(t *testing.T) {
	p := New(&scripted{replies: map[string]string{
		"assigned tasks": `{"assigned": ["alice", "mallory", "alice", 3]}`,
	}}, "", llm.Params{})
	got, err := p.AssignedMembers(context.Background(), history, []string{"alice", "bob"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"alice"}) {
		t.Fatalf("assigned = %v", got)
	}
}

func TestGroupPlanNormalizes(t *testing.T) {
	s := &scripted{replies: map[string]string{
		"structured group plan": `{
			"event": "BBQ",
			"items": [
				{"name": "grill", "assigned_to": "alice"},
				{"name": "buns", "assigned_to": "mallory"},
				{"name": "ice"},
				"not an item"
			],
			"timeline": "Saturday noon",
		}`,
	}}
	p := New(s, "", llm.Params{})
	plan, err := p.GroupPlan(context.Background(), history, "BBQ party", []string{"alice", "bob"})
	if err != nil {
		t.Fatal(err)
	}

	want := &GroupPlan{
		Event:   "BBQ",
		Summary: "Here is your group plan.",
		Items: []PlanItem{
			{Name: "grill", AssignedTo: "alice"},
			{Name: "buns", AssignedTo: Unassigned},
			{Name: "ice", AssignedTo: Unassigned},
		},
		Timeline:  []string{"Saturday noon"},
		Narrative: "Here is your plan!",
	}
	if !reflect.DeepEqual(plan, want) {
		t.Fatalf("plan = %+v", plan)
	}
	if len(s.prompts) != 1 {
		t.Fatalf("a given goal should skip goal inference, got %d prompts", len(s.prompts))
	}
	if !strings.Contains(s.prompts[0], "Members: alice, bob") {
		t.Fatalf("prompt = %q", s.prompts[0])
	}
}

func TestGroupPlanDefaultsOnGarbage(t *testing.T) {
	p := New(&scripted{replies: map[string]string{
		"main event goal": `{"goal": "Hotpot night"}`,
	}}, "", llm.Params{})
	plan, err := p.GroupPlan(context.Background(), history, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Event != "Hotpot night" || len(plan.Items) != 0 || len(plan.Timeline) != 0 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestProcurementPlan(t *testing.T) {
	s := &scripted{replies: map[string]string{
		"main event goal":        `{"goal": "Friendsgiving dinner"}`,
		"AI Procurement Planner": `Here you go: {"summary": "Turkey run", "items": [{"name": "turkey", "quantity": 1, "notes": "12 lb"}, {"name": "cranberries", "quantity": "2 bags"}]}`,
	}}
	p := New(s, "", llm.Params{})
	plan, err := p.ProcurementPlan(context.Background(), history)
	if err != nil {
		t.Fatal(err)
	}
	if plan.Goal != "Friendsgiving dinner" || plan.Summary != "Turkey run" || plan.Narrative != "Here is your procurement plan." {
		t.Fatalf("plan = %+v", plan)
	}
	if len(plan.Items) != 2 || plan.Items[0].Quantity != float64(1) || plan.Items[1].Quantity != "2 bags" {
		t.Fatalf("items = %+v", plan.Items)
	}
	if !strings.Contains(s.prompts[1], `"inferred_goal": "Friendsgiving dinner"`) {
		t.Fatalf("procurement prompt = %q", s.prompts[1])
	}
}

func TestSuggestInvites(t *testing.T) {
	p := New(&scripted{replies: map[string]string{
		"assigned tasks":  `{"assigned": ["alice"]}`,
		"helping a group": `{"suggested_invites": ["alice", "bob", "zed"], "missing_roles": ["driver"]}`,
	}}, "", llm.Params{})
	got, err := p.SuggestInvites(context.Background(), history, []string{"alice", "bob", "carol"}, "BBQ")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.SuggestedInvites, []string{"bob"}) {
		t.Fatalf("suggested = %v", got.SuggestedInvites)
	}
	if !reflect.DeepEqual(got.MissingRoles, []string{"driver"}) {
		t.Fatalf("missing roles = %v", got.MissingRoles)
	}
	if got.Narrative == "" {
		t.Fatal("narrative should fall back to a default")
	}
}

func TestPlannerPropagatesModelError(t *testing.T) {
	boom := errors.New("provider down")
	p := New(&scripted{err: boom}, "", llm.Params{})
	if _, err := p.GroupPlan(context.Background(), history, "", nil); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

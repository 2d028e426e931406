// Package planner turns a room's chat history into structured plans by
// prompting a model and recovering JSON from its reply.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/pohaoc29/GroceryShopperAI/internal/extract"
	"github.com/pohaoc29/GroceryShopperAI/internal/llm"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

// Unassigned marks a plan item nobody in the room has taken.
const Unassigned = "Unassigned"

// Completer runs a transcript through a model provider.
type Completer interface {
	Complete(ctx context.Context, transcript []llm.Turn, params llm.Params, provider string) (string, error)
}

// Planner prompts one provider for every plan it builds.
type Planner struct {
	llm      Completer
	provider string
	params   llm.Params
}

// New creates a planner. An empty provider selects the gateway default.
func New(c Completer, provider string, params llm.Params) *Planner {
	return &Planner{llm: c, provider: provider, params: params}
}

// WithProvider returns a copy of p that prompts provider instead.
func (p *Planner) WithProvider(provider string) *Planner {
	cp := *p
	cp.provider = provider
	return &cp
}

// FormatHistory renders messages one per line as "[User] text" or
// "[Assistant] text".
func FormatHistory(messages []models.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		role := "User"
		if m.IsBot {
			role = "Assistant"
		}
		lines = append(lines, fmt.Sprintf("[%s] %s", role, strings.ReplaceAll(m.Content, "\n", " ")))
	}
	return strings.Join(lines, "\n")
}

func (p *Planner) ask(ctx context.Context, system, user string) (map[string]any, error) {
	raw, err := p.llm.Complete(ctx, []llm.Turn{llm.System(system), llm.User(user)}, p.params, p.provider)
	if err != nil {
		return nil, err
	}
	return extract.Object(raw), nil
}

const goalPrompt = `You are an AI assistant. Identify the main event goal of the group based on the chat history.

The goal could be things like:
- "BBQ party this Saturday"
- "Friendsgiving dinner"
- "Weekly grocery shopping"
- "Hotpot night with friends"
- "Prepare next week's menu and restock"

Output JSON ONLY:
{"goal": "<string>"}

If there is no clear goal, return:
{"goal": ""}`

// Goal infers the group's event goal, or "" when there is none.
func (p *Planner) Goal(ctx context.Context, history []models.Message) (string, error) {
	data, err := p.ask(ctx, goalPrompt,
		fmt.Sprintf("Chat history:\n%s\n\nExtract the goal in JSON.", FormatHistory(history)))
	if err != nil {
		return "", err
	}
	return extract.String(data, "goal", ""), nil
}

const assignedPrompt = `You detect which members from the given list have been assigned tasks based on the chat history.

Output JSON ONLY:
{"assigned": ["name1", "name2"]}

Rules:
- Only include names that appear in the provided member list.
- If nobody is clearly assigned, return an empty list.`

// AssignedMembers returns the members the chat has already given a task,
// restricted to names in members.
func (p *Planner) AssignedMembers(ctx context.Context, history []models.Message, members []string) ([]string, error) {
	data, err := p.ask(ctx, assignedPrompt,
		fmt.Sprintf("Chat history:\n%s\n\nMember list: %s", FormatHistory(history), strings.Join(members, ", ")))
	if err != nil {
		return nil, err
	}
	assigned := []string{}
	for _, name := range extract.Strings(data, "assigned") {
		if slices.Contains(members, name) && !slices.Contains(assigned, name) {
			assigned = append(assigned, name)
		}
	}
	return assigned, nil
}

// PlanItem is one task of a group plan.
type PlanItem struct {
	Name       string `json:"name"`
	AssignedTo string `json:"assigned_to"`
}

// GroupPlan is a structured plan for a group event.
type GroupPlan struct {
	Event     string     `json:"event"`
	Summary   string     `json:"summary"`
	Items     []PlanItem `json:"items"`
	Timeline  []string   `json:"timeline"`
	Narrative string     `json:"narrative"`
}

const groupPlanPrompt = `You are an AI assistant generating a structured group plan.

STRICT RULES:
- Output ONLY VALID JSON.
- No explanations outside the JSON.
- Use these EXACT field names:

{
    "event": "<string>",
    "summary": "<string>",
    "items": [{"name": "<string>", "assigned_to": "<string>"}],
    "timeline": ["<string>", "<string>"],
    "narrative": "<string>"
}

ADDITIONAL RULES:
- If assigned_to is not in the provided member list, use "Unassigned".
- "timeline" MUST be an array.
- "items" MUST be an array.
- Make narrative friendly.
- Use ONLY member names provided (no new people).`

// GroupPlan builds a plan for goal, inferring the goal from the chat when it
// is empty. Items assigned to anyone outside members become Unassigned.
func (p *Planner) GroupPlan(ctx context.Context, history []models.Message, goal string, members []string) (*GroupPlan, error) {
	if goal == "" {
		var err error
		if goal, err = p.Goal(ctx, history); err != nil {
			return nil, err
		}
	}

	memberList := "None"
	if len(members) > 0 {
		memberList = strings.Join(members, ", ")
	}
	data, err := p.ask(ctx, groupPlanPrompt, fmt.Sprintf(
		"Goal: %s\nMembers: %s\n\nChat history:\n%s\n\nGenerate JSON with all required keys.",
		goal, memberList, FormatHistory(history)))
	if err != nil {
		return nil, err
	}

	plan := &GroupPlan{
		Event:     extract.String(data, "event", goal),
		Summary:   extract.String(data, "summary", "Here is your group plan."),
		Items:     []PlanItem{},
		Timeline:  timeline(data["timeline"]),
		Narrative: extract.String(data, "narrative", "Here is your plan!"),
	}
	items, _ := extract.List(data, "items")
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		assignee := extract.String(obj, "assigned_to", Unassigned)
		if !slices.Contains(members, assignee) {
			assignee = Unassigned
		}
		plan.Items = append(plan.Items, PlanItem{
			Name:       extract.String(obj, "name", ""),
			AssignedTo: assignee,
		})
	}
	return plan, nil
}

// timeline accepts a list of steps or wraps a single value into one.
func timeline(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case []any:
		out := make([]string, 0, len(t))
		for _, step := range t {
			if s, ok := step.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(step))
			}
		}
		return out
	case string:
		return []string{t}
	default:
		return []string{fmt.Sprint(t)}
	}
}

// ProcurementItem is one line of a shopping list.
type ProcurementItem struct {
	Name     string `json:"name"`
	Quantity any    `json:"quantity"`
	Notes    string `json:"notes"`
}

// ProcurementPlan is a shopping plan derived from the chat.
type ProcurementPlan struct {
	Goal      string            `json:"goal"`
	Summary   string            `json:"summary"`
	Narrative string            `json:"narrative"`
	Items     []ProcurementItem `json:"items"`
}

const procurementPrompt = `You are an AI Procurement Planner.

Convert the chat history and goal into a structured JSON procurement plan.

RULES:
- Output ONLY VALID JSON.
- DO NOT add commentary outside JSON.
- Use EXACT FIELD NAMES below.

JSON FORMAT:
{
    "goal": "<string>",
    "summary": "<string>",
    "narrative": "<string>",
    "items": [{"name": "<string>", "quantity": "<string or number>", "notes": "<string>"}]
}`

// ProcurementPlan builds a shopping list from the chat alone.
func (p *Planner) ProcurementPlan(ctx context.Context, history []models.Message) (*ProcurementPlan, error) {
	goal, err := p.Goal(ctx, history)
	if err != nil {
		return nil, err
	}

	payload, err := json.MarshalIndent(map[string]string{
		"inferred_goal":     goal,
		"chat_history_text": FormatHistory(history),
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	data, err := p.ask(ctx, procurementPrompt, string(payload))
	if err != nil {
		return nil, err
	}

	plan := &ProcurementPlan{
		Goal:      extract.String(data, "goal", goal),
		Summary:   extract.String(data, "summary", "Here is your shopping summary."),
		Narrative: extract.String(data, "narrative", "Here is your procurement plan."),
		Items:     []ProcurementItem{},
	}
	items, _ := extract.List(data, "items")
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		plan.Items = append(plan.Items, ProcurementItem{
			Name:     extract.String(obj, "name", ""),
			Quantity: obj["quantity"],
			Notes:    extract.String(obj, "notes", ""),
		})
	}
	return plan, nil
}

// InviteSuggestion proposes who else should help.
type InviteSuggestion struct {
	SuggestedInvites []string `json:"suggested_invites"`
	MissingRoles     []string `json:"missing_roles"`
	Narrative        string   `json:"narrative"`
}

const invitePrompt = `You are an AI assistant helping a group plan an event.

STRICT RULES:
- Output ONLY VALID JSON.
- No commentary outside JSON.

JSON FORMAT:
{
    "suggested_invites": ["<member name>"],
    "missing_roles": ["<string>"],
    "narrative": "<string>"
}

ADDITIONAL RULES:
- Use ONLY names from the provided member list.
- "suggested_invites" MUST be chosen from the available member list.
- If additional help is needed beyond available members, place type descriptions into "missing_roles".
- "narrative" should be friendly and casual.`

// SuggestInvites proposes members without a task yet. Suggestions outside
// the unassigned members are dropped.
func (p *Planner) SuggestInvites(ctx context.Context, history []models.Message, members []string, goal string) (*InviteSuggestion, error) {
	if goal == "" {
		var err error
		if goal, err = p.Goal(ctx, history); err != nil {
			return nil, err
		}
	}
	assigned, err := p.AssignedMembers(ctx, history, members)
	if err != nil {
		return nil, err
	}
	available := make([]string, 0, len(members))
	for _, m := range members {
		if !slices.Contains(assigned, m) {
			available = append(available, m)
		}
	}

	data, err := p.ask(ctx, invitePrompt, fmt.Sprintf(
		"Goal: %s\n\nAll members: %s\nAssigned members: %s\nAvailable members: %s\n\nChat history:\n%s\n\nGenerate the JSON suggestion now.",
		goal, strings.Join(members, ", "), orNone(assigned), orNone(available), FormatHistory(history)))
	if err != nil {
		return nil, err
	}

	out := &InviteSuggestion{
		SuggestedInvites: []string{},
		MissingRoles:     extract.Strings(data, "missing_roles"),
		Narrative:        extract.String(data, "narrative", "Here are some suggestions to help your group planning."),
	}
	for _, name := range extract.Strings(data, "suggested_invites") {
		if slices.Contains(available, name) {
			out.SuggestedInvites = append(out.SuggestedInvites, name)
		}
	}
	return out, nil
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}

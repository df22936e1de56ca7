package reviewconsole

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"testforge/internal/bootstrap/logging"
	domain "testforge/internal/domain/artifact"
	"testforge/internal/ports"
	"testforge/internal/usecase/artifact"
)

const maxShownHistory = 5
const maxAuditLines = 8

type Options struct {
	ProjectID       string
	Reviewer        string
	RefreshInterval time.Duration
}

type reviewModel struct {
	ctx             context.Context
	service         *artifact.Service
	projectID       string
	reviewer        string
	refreshInterval time.Duration

	queue         []ports.Artifact
	selectedIndex int
	detail        artifact.Detail
	hasDetail     bool
	status        string
	auditLogs     []string
}

type queueLoadedMsg struct {
	items []ports.Artifact
	err   error
}

type detailLoadedMsg struct {
	artifactID string
	detail     artifact.Detail
	err        error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action     string
	artifactID string
	result     string
	err        error
}

func NewReviewModel(ctx context.Context, service *artifact.Service, options Options) tea.Model {
	reviewer := strings.TrimSpace(options.Reviewer)
	if reviewer == "" {
		reviewer = "reviewer"
	}
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &reviewModel{
		ctx:             ctx,
		service:         service,
		projectID:       strings.TrimSpace(options.ProjectID),
		reviewer:        reviewer,
		refreshInterval: interval,
		status:          "starting",
	}
}

func (m *reviewModel) Init() tea.Cmd {
	return tea.Batch(m.loadQueueCmd(), m.tickCmd())
}

func (m *reviewModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadQueueCmd(), m.tickCmd())
	case queueLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.queue = msg.items
		if len(m.queue) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "queue is empty"
			return m, nil
		}
		m.selectedIndex = clampIndex(m.selectedIndex, len(m.queue))
		m.status = fmt.Sprintf("refreshed, %d waiting", len(m.queue))
		return m, m.loadSelectedDetailCmd()
	case detailLoadedMsg:
		if !m.isCurrentSelection(msg.artifactID) {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail load failed: " + msg.err.Error()
			return m, nil
		}
		m.hasDetail = true
		m.detail = msg.detail
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendAuditLog(msg.action, msg.artifactID, "failed", msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendAuditLog(msg.action, msg.artifactID, msg.result, nil)
		}
		return m, m.loadQueueCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadQueueCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.queue)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "c":
			return m, m.claimCmd()
		case "a":
			return m, m.approveCmd()
		case "x":
			return m, m.rejectCmd()
		}
	}
	return m, nil
}

func (m *reviewModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Review Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"project=%s reviewer=%s refresh=%s",
		firstNonEmpty(m.projectID, "all"),
		m.reviewer,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Queue"))
	builder.WriteString("\n")
	if len(m.queue) == 0 {
		builder.WriteString(dimStyle.Render("- nothing waiting for review"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.queue {
			line := fmt.Sprintf("%s [%s] risk=%s v%d %s",
				shortID(item.ID), item.State, item.RiskLevel, item.Version, truncate(item.Title, 48))
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		a := m.detail.Artifact
		w := m.detail.Workflow
		builder.WriteString(fmt.Sprintf("ID: %s\n", a.ID))
		builder.WriteString(fmt.Sprintf("Title: %s\n", a.Title))
		builder.WriteString(fmt.Sprintf("Type: %s  Risk: %s (%.1f)\n", a.Type, a.RiskLevel, a.RiskScore))
		builder.WriteString(fmt.Sprintf("Approvals: %d/%d\n", w.CurrentApprovals, w.RequiredApprovals))
		if holder, ok := activeReviewer(m.detail.Steps); ok {
			builder.WriteString(fmt.Sprintf("ClaimedBy: %s\n", holder))
		} else {
			builder.WriteString("ClaimedBy: -\n")
		}
		builder.WriteString("\nRecent History:\n")
		history := m.detail.History // newest first
		if len(history) == 0 {
			builder.WriteString("- none\n")
		} else {
			if len(history) > maxShownHistory {
				history = history[:maxShownHistory]
			}
			for _, entry := range history {
				builder.WriteString(fmt.Sprintf("- %s by %s -> %s\n", entry.Action, entry.ActorID, entry.ToState))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Actions"))
	builder.WriteString("\n")
	builder.WriteString("- c claim selected artifact\n")
	builder.WriteString("- a approve claimed artifact\n")
	builder.WriteString("- x reject claimed artifact\n")
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  c/a/x act  q quit"))
	return builder.String()
}

func (m *reviewModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *reviewModel) loadQueueCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.service.ReviewQueue(m.ctx, m.projectID, 0, 0)
		if err != nil {
			return queueLoadedMsg{err: err}
		}
		return queueLoadedMsg{items: result.Items}
	}
}

func (m *reviewModel) loadSelectedDetailCmd() tea.Cmd {
	selected, ok := m.selectedArtifact()
	if !ok {
		return nil
	}
	artifactID := selected.ID
	return func() tea.Msg {
		detail, err := m.service.FindByID(m.ctx, artifactID)
		if err != nil {
			return detailLoadedMsg{artifactID: artifactID, err: err}
		}
		return detailLoadedMsg{artifactID: artifactID, detail: detail}
	}
}

func (m *reviewModel) claimCmd() tea.Cmd {
	selected, ok := m.selectedArtifact()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	artifactID := selected.ID
	m.status = "claiming..."
	return func() tea.Msg {
		if _, err := m.service.ClaimReview(m.ctx, artifactID, m.reviewer); err != nil {
			return actionDoneMsg{action: "claim", artifactID: artifactID, err: err}
		}
		return actionDoneMsg{action: "claim", artifactID: artifactID, result: "in_review"}
	}
}

func (m *reviewModel) approveCmd() tea.Cmd {
	selected, ok := m.selectedArtifact()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	artifactID := selected.ID
	m.status = "approving..."
	return func() tea.Msg {
		detail, err := m.service.Approve(m.ctx, artifactID, m.reviewer, "console approve")
		if err != nil {
			return actionDoneMsg{action: "approve", artifactID: artifactID, err: err}
		}
		return actionDoneMsg{
			action:     "approve",
			artifactID: artifactID,
			result: fmt.Sprintf("%s %d/%d",
				detail.Artifact.State, detail.Workflow.CurrentApprovals, detail.Workflow.RequiredApprovals),
		}
	}
}

func (m *reviewModel) rejectCmd() tea.Cmd {
	selected, ok := m.selectedArtifact()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	artifactID := selected.ID
	m.status = "rejecting..."
	return func() tea.Msg {
		if _, err := m.service.Reject(m.ctx, artifactID, m.reviewer, "console reject", nil); err != nil {
			return actionDoneMsg{action: "reject", artifactID: artifactID, err: err}
		}
		return actionDoneMsg{action: "reject", artifactID: artifactID, result: "rejected"}
	}
}

func (m *reviewModel) selectedArtifact() (ports.Artifact, bool) {
	if len(m.queue) == 0 {
		return ports.Artifact{}, false
	}
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.queue) {
		return ports.Artifact{}, false
	}
	return m.queue[m.selectedIndex], true
}

func (m *reviewModel) isCurrentSelection(artifactID string) bool {
	selected, ok := m.selectedArtifact()
	if !ok {
		return false
	}
	return selected.ID == strings.TrimSpace(artifactID)
}

func (m *reviewModel) appendAuditLog(action string, artifactID string, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + opErr.Error()
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s actor=%s artifact=%s action=%s result=%s", timestamp, m.reviewer, shortID(artifactID), action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	logging.Info(m.ctx, "review console action",
		slog.String("time", timestamp),
		slog.String("actor", m.reviewer),
		slog.String("artifact_id", artifactID),
		slog.String("action", action),
		slog.String("result", outcome),
	)
}

func activeReviewer(steps []ports.Step) (string, bool) {
	for _, step := range steps {
		if step.Status == domain.StepInProgress {
			return step.AssignedToID, true
		}
	}
	return "", false
}

func clampIndex(index int, length int) int {
	if index < 0 {
		return 0
	}
	if index >= length {
		return length - 1
	}
	return index
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}

package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/layout"
	"github.com/matzehuels/planmap/pkg/session"
)

// moveStep is how far one keypress moves a node, in pixels.
const moveStep = 20

var (
	editorCursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	editorSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	editorNormalStyle   = lipgloss.NewStyle().Foreground(colorGray)
	editorPromptStyle   = lipgloss.NewStyle().Foreground(colorBlue)
	editorErrorStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// prompt identifies what the input line is collecting.
type prompt int

const (
	promptNone prompt = iota
	promptRole
	promptTask
	promptComment
	promptEditRole
	promptEditTask
	promptLabel
)

var promptLabels = map[prompt]string{
	promptRole:     "New node role",
	promptTask:     "New node task",
	promptComment:  "Comment",
	promptEditRole: "Role",
	promptEditTask: "Task",
	promptLabel:    "Edge label",
}

// syncErrMsg carries a failed background sync into the update loop.
type syncErrMsg struct{ err error }

// editorModel is the bubbletea model behind `planmap edit`. Every change
// goes through the session, which dispatches the document to the sync
// worker; the model only tracks cursor and prompt state.
type editorModel struct {
	sess    *session.Session
	title   string
	opts    layout.Options
	syncErr <-chan error

	cursor  int
	connect string // source node id while picking a connect target
	prompt  prompt
	input   string
	draft   session.NewNode

	status  string
	failure string
	height  int
}

func newEditorModel(title string, sess *session.Session, opts layout.Options, syncErr <-chan error) editorModel {
	m := editorModel{
		sess:    sess,
		title:   title,
		opts:    opts,
		syncErr: syncErr,
		height:  20,
	}
	if nodes := sess.Nodes(); len(nodes) > 0 {
		sess.Select(nodes[0].ID)
	}
	return m
}

// waitSyncErr blocks on the next sync failure.
func waitSyncErr(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-ch
		if !ok {
			return nil
		}
		return syncErrMsg{err: err}
	}
}

func (m editorModel) Init() tea.Cmd {
	return waitSyncErr(m.syncErr)
}

func (m editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case syncErrMsg:
		m.failure = "sync failed: " + perrors.UserMessage(msg.err)
		return m, waitSyncErr(m.syncErr)
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-12, 5)
	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		return m.updateNormal(msg)
	}
	return m, nil
}

func (m editorModel) current() (diagram.Node, bool) {
	nodes := m.sess.Nodes()
	if m.cursor < 0 || m.cursor >= len(nodes) {
		return diagram.Node{}, false
	}
	return nodes[m.cursor], true
}

func (m *editorModel) moveCursor(delta int) {
	nodes := m.sess.Nodes()
	if len(nodes) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(nodes)-1)
	m.sess.Select(nodes[m.cursor].ID)
}

func (m editorModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	n, ok := m.current()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "esc":
		m.sess.Deselect()
		m.connect = ""
	case "shift+up", "K":
		m.nudge(n, ok, 0, -moveStep)
	case "shift+down", "J":
		m.nudge(n, ok, 0, moveStep)
	case "shift+left", "H":
		m.nudge(n, ok, -moveStep, 0)
	case "shift+right", "L":
		m.nudge(n, ok, moveStep, 0)
	case "a":
		m.draft = session.NewNode{}
		if ok {
			m.draft.Position = diagram.Position{X: n.Position.X + m.opts.NodeWidth + m.opts.NodeSep, Y: n.Position.Y}
		}
		m.startPrompt(promptRole, "")
	case "d", "delete":
		if ok && m.sess.Delete(n.ID) {
			m.status = "deleted " + label(n)
			m.moveCursor(0)
		}
	case "s":
		if ok {
			next := nextStatus(n.Data.Status)
			if _, err := m.sess.Edit(n.ID, session.Patch{Status: &next}); err != nil {
				m.failure = perrors.UserMessage(err)
			}
		}
	case "c":
		if ok {
			m.startPrompt(promptComment, n.Data.Comment)
		}
	case "r":
		if ok {
			m.startPrompt(promptEditRole, n.Data.Role)
		}
	case "t":
		if ok {
			m.startPrompt(promptEditTask, n.Data.Task)
		}
	case "e":
		if ok {
			m.connect = n.ID
			m.status = "connect " + label(n) + " to... (enter on target, esc cancels)"
		}
	case "enter":
		if ok && m.connect != "" {
			if m.connect == n.ID {
				m.status = "pick a different target"
				break
			}
			e, err := m.sess.Connect(m.connect, n.ID)
			if err != nil {
				m.failure = perrors.UserMessage(err)
			} else {
				m.status = "connected " + shortID(e.Source) + " " + iconArrow + " " + shortID(e.Target)
			}
			m.connect = ""
		}
	case "x":
		if e, found := m.outgoing(n, ok); found {
			m.sess.DeleteEdge(e.ID)
			m.status = "removed edge " + shortID(e.Source) + " " + iconArrow + " " + shortID(e.Target)
		}
	case "l":
		if e, found := m.outgoing(n, ok); found {
			m.startPrompt(promptLabel, e.Label)
		}
	}
	return m, nil
}

func (m *editorModel) nudge(n diagram.Node, ok bool, dx, dy float64) {
	if !ok {
		return
	}
	m.sess.Move(n.ID, diagram.Position{X: n.Position.X + dx, Y: n.Position.Y + dy})
}

// outgoing returns the first edge leaving n.
func (m editorModel) outgoing(n diagram.Node, ok bool) (diagram.Edge, bool) {
	if !ok {
		return diagram.Edge{}, false
	}
	for _, e := range m.sess.Edges() {
		if e.Source == n.ID {
			return e, true
		}
	}
	return diagram.Edge{}, false
}

func (m *editorModel) startPrompt(p prompt, initial string) {
	m.prompt = p
	m.input = initial
}

func (m editorModel) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.prompt = promptNone
		m.input = ""
		return m, nil
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
		return m, nil
	case tea.KeySpace:
		m.input += " "
		return m, nil
	case tea.KeyRunes:
		m.input += string(msg.Runes)
		return m, nil
	case tea.KeyEnter:
		return m.submitPrompt()
	}
	return m, nil
}

func (m editorModel) submitPrompt() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input)
	p := m.prompt
	m.prompt = promptNone
	m.input = ""
	m.failure = ""

	n, ok := m.current()
	switch p {
	case promptRole:
		m.draft.Role = value
		m.startPrompt(promptTask, "")
	case promptTask:
		m.draft.Task = value
		if ok {
			m.draft.ParentID = n.Parent()
		}
		added, err := m.sess.Add(m.draft)
		if err != nil {
			m.failure = perrors.UserMessage(err)
			break
		}
		m.status = "added " + label(added)
		m.cursor = len(m.sess.Nodes()) - 1
		m.sess.Select(added.ID)
	case promptComment:
		if ok {
			m.edit(n.ID, session.Patch{Comment: &value})
		}
	case promptEditRole:
		if ok {
			m.edit(n.ID, session.Patch{Role: &value})
		}
	case promptEditTask:
		if ok {
			m.edit(n.ID, session.Patch{Task: &value})
		}
	case promptLabel:
		if e, found := m.outgoing(n, ok); found {
			m.sess.LabelEdge(e.ID, value)
		}
	}
	return m, nil
}

func (m *editorModel) edit(id string, p session.Patch) {
	if _, err := m.sess.Edit(id, p); err != nil {
		m.failure = perrors.UserMessage(err)
	}
}

func nextStatus(s diagram.Status) diagram.Status {
	switch s {
	case diagram.StatusNone:
		return diagram.StatusInProgress
	case diagram.StatusInProgress:
		return diagram.StatusComplete
	}
	return diagram.StatusNone
}

func label(n diagram.Node) string {
	if n.Data.Task != "" {
		return fmt.Sprintf("%q", n.Data.Task)
	}
	return shortID(n.ID)
}

func (m editorModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  rev %d", m.sess.Revision())))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ select  HJKL move  a add  d delete  s status  c comment  r/t role/task  e connect  x unlink  l label  q quit"))
	b.WriteString("\n\n")

	nodes := m.sess.LiveNodes()
	start := 0
	if m.cursor >= m.height {
		start = m.cursor - m.height + 1
	}
	end := min(start+m.height, len(nodes))
	for i := start; i < end; i++ {
		n := nodes[i]
		marker := "  "
		style := editorNormalStyle
		switch {
		case i == m.cursor:
			marker = "▸ "
			style = editorCursorStyle
		case n.Selected:
			style = editorSelectedStyle
		}
		if n.ID == m.connect {
			marker = "◆ "
		}
		line := fmt.Sprintf("%-16s %-32s", truncate(n.Data.Role, 16), truncate(n.Data.Task, 32))
		b.WriteString(marker + style.Render(line) + " " + statusStyle(n.Data.Status).Render(n.Data.Status.String()))
		b.WriteString(StyleDim.Render(fmt.Sprintf("  (%.0f,%.0f)", n.Position.X, n.Position.Y)))
		if n.Data.Comment != "" {
			b.WriteString(StyleDim.Render("  # " + truncate(n.Data.Comment, 30)))
		}
		b.WriteString("\n")
	}
	if len(nodes) == 0 {
		b.WriteString(StyleDim.Render("  empty diagram, press a to add a node\n"))
	}

	if n, ok := m.current(); ok {
		var links []string
		for _, e := range m.sess.Edges() {
			if e.Source == n.ID {
				links = append(links, iconArrow+" "+m.taskOf(e.Target)+edgeLabel(e))
			}
		}
		if len(links) > 0 {
			b.WriteString("\n" + StyleDim.Render("  "+strings.Join(links, "   ")) + "\n")
		}
	}

	b.WriteString("\n  " + summaryLine(m.sess.Summary()) + "\n")
	if m.prompt != promptNone {
		b.WriteString(editorPromptStyle.Render(promptLabels[m.prompt]+": ") + m.input + "█\n")
	}
	if m.status != "" {
		b.WriteString(StyleDim.Render(m.status) + "\n")
	}
	if m.failure != "" {
		b.WriteString(editorErrorStyle.Render(iconError+" "+m.failure) + "\n")
	}
	return b.String()
}

func (m editorModel) taskOf(id string) string {
	for _, n := range m.sess.Nodes() {
		if n.ID == id {
			return label(n)
		}
	}
	return shortID(id)
}

func edgeLabel(e diagram.Edge) string {
	if e.Label == "" {
		return ""
	}
	return " [" + e.Label + "]"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

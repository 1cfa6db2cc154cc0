package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/mirinae-games/npc-engine/internal/engine"
)

const placeHolderText = "Say something... (/quests, /accept, /reject, /deliver, Esc to leave)"

var (
	npcStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	playerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
)

type replyMsg string

type uiModel struct {
	orch    *engine.Orchestrator
	sess    *engine.Session
	replies chan string
	done    chan struct{}

	viewport  viewport.Model
	textarea  textarea.Model
	lines     []string
	lastReply string
	waiting   bool
	ended     bool
	width     int
}

func newUIModel(orch *engine.Orchestrator, sess *engine.Session, replies chan string) *uiModel {
	ta := textarea.New()
	ta.Placeholder = placeHolderText
	ta.Focus()
	ta.SetHeight(2)
	ta.CharLimit = 500

	vp := viewport.New(80, 20)

	m := &uiModel{
		orch:     orch,
		sess:     sess,
		replies:  replies,
		done:     make(chan struct{}),
		viewport: vp,
		textarea: ta,
		width:    80,
	}
	m.addNPCLine(sess.Greeting())
	return m
}

func (m *uiModel) Init() tea.Cmd {
	return textarea.Blink
}

// waitForReply blocks on the sink channel until the orchestrator
// delivers the turn's reply. A session that closes with the turn still
// in flight delivers nothing, so the wait also unblocks on session end
// and reports an empty reply.
func (m *uiModel) waitForReply() tea.Cmd {
	return func() tea.Msg {
		select {
		case text := <-m.replies:
			return replyMsg(text)
		case <-m.done:
			return replyMsg("")
		}
	}
}

func (m *uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 5
		m.textarea.SetWidth(msg.Width)
		m.refresh()
		return m, nil

	case replyMsg:
		m.waiting = false
		if msg == "" {
			// The session closed before a reply arrived.
			return m, nil
		}
		m.lastReply = string(msg)
		m.addNPCLine(string(msg))
		if m.sess.AtTurnLimit() && !m.ended {
			m.addNPCLine(m.sess.Farewell())
			m.endSession()
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if !m.ended {
				m.endSession()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if !m.ended {
				m.endSession()
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyCtrlY:
			if m.lastReply != "" {
				_ = clipboard.WriteAll(m.lastReply)
			}
			return m, nil

		case tea.KeyEnter:
			if m.waiting || m.ended {
				return m, nil
			}
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.submit(text)
		}
	}

	var taCmd, vpCmd tea.Cmd
	m.textarea, taCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(taCmd, vpCmd)
}

// submit handles slash commands locally and hands everything else to
// the orchestrator as a dialogue turn.
func (m *uiModel) submit(text string) tea.Cmd {
	ctx := context.Background()

	if strings.HasPrefix(text, "/") {
		switch strings.ToLower(text) {
		case "/quests":
			if m.sess.HasActiveQuest() {
				m.addHint("A quest is in progress. Use /deliver when you have the items.")
			} else if m.sess.HasPendingProposal() {
				m.addHint("A quest has been offered. /accept or /reject it.")
			} else {
				m.addHint("No quest activity. Try asking about work.")
			}
		case "/accept":
			m.orch.AcceptProposal(ctx, m.sess)
			m.addHint("Quest accepted.")
		case "/reject":
			m.orch.RejectProposal(m.sess)
			m.addHint("Quest declined.")
		case "/deliver":
			if !m.orch.CanDeliverQuestItem(ctx, m.sess) {
				m.addHint("You don't have what's needed yet.")
				return nil
			}
			// Completion line arrives through the sink.
			go func() { _, _ = m.orch.DeliverQuestItem(ctx, m.sess) }()
			m.waiting = true
			return m.waitForReply()
		default:
			m.addHint("Unknown command: " + text)
		}
		return nil
	}

	m.addPlayerLine(text)
	m.waiting = true
	go func() {
		if err := m.orch.HandlePlayerInput(ctx, m.sess, text); err != nil {
			m.replies <- "(" + err.Error() + ")"
		}
	}()
	return m.waitForReply()
}

func (m *uiModel) endSession() {
	bubble := m.orch.EndSession(context.Background(), m.sess)
	if bubble != "" {
		m.addNPCLine(bubble)
	}
	m.ended = true
	close(m.done)
	m.addHint("Session ended. Press Esc again to quit.")
}

func (m *uiModel) addNPCLine(text string) {
	m.lines = append(m.lines, npcStyle.Render(m.sess.Name()+": ")+text)
	m.refresh()
}

func (m *uiModel) addPlayerLine(text string) {
	m.lines = append(m.lines, playerStyle.Render("You: ")+text)
	m.refresh()
}

func (m *uiModel) addHint(text string) {
	m.lines = append(m.lines, hintStyle.Render(text))
	m.refresh()
}

func (m *uiModel) refresh() {
	m.viewport.SetContent(wordwrap.String(strings.Join(m.lines, "\n\n"), m.width))
	m.viewport.GotoBottom()
}

func (m *uiModel) View() string {
	status := fmt.Sprintf("affinity %d/100 · %d turn(s) left · ctrl+y copies the last reply",
		m.sess.Affinity(), m.sess.RemainingTurns())
	if m.waiting {
		status = "thinking..."
	}
	return fmt.Sprintf("%s\n\n%s\n%s",
		m.viewport.View(),
		m.textarea.View(),
		hintStyle.Render(status))
}

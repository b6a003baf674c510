package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/a-h/mathagent/client"
	"github.com/a-h/mathagent/models"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

const chatHelp = `Ask a math question. After an answer, rate it with:

/correct
/incorrect [comment]
/improve <comment>`

type ChatCommand struct {
	ServerURL string `help:"The URL of the math agent server." env:"MATHAGENT_URL" default:"http://localhost:9020"`
	APIKey    string `help:"The API key for the math agent server." env:"MATHAGENT_API_KEY" default:""`
	LogLevel  string `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func (c ChatCommand) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := newChatSession(client.New(c.ServerURL, c.APIKey))

	p := tea.NewProgram(newModel(ctx, s.toAgent, s.fromAgent, s.errors))
	go s.run(ctx)
	if _, err = p.Run(); err != nil {
		return err
	}
	return nil
}

type agentClient interface {
	QueryPost(ctx context.Context, req models.QueryPostRequest) (models.QueryPostResponse, error)
	FeedbackPost(ctx context.Context, req models.FeedbackPostRequest) (models.FeedbackPostResponse, error)
}

type chatMessageType string

const (
	chatMessageTypeSystem chatMessageType = "system"
	chatMessageTypeHuman  chatMessageType = "human"
	chatMessageTypeAI     chatMessageType = "ai"
)

type chatMessage struct {
	Type    chatMessageType
	Content string
	// Provenance of AI messages.
	Provenance string
}

// chatSession sends each line to the agent and keeps the transcript. Feedback
// commands apply to the most recent answer.
type chatSession struct {
	client    agentClient
	messages  []chatMessage
	lastQuery string
	lastReply string
	toAgent   chan string
	fromAgent chan []chatMessage
	errors    chan error
}

func newChatSession(c agentClient) *chatSession {
	return &chatSession{
		client:    c,
		messages:  []chatMessage{{Type: chatMessageTypeSystem, Content: chatHelp}},
		toAgent:   make(chan string),
		fromAgent: make(chan []chatMessage),
		errors:    make(chan error),
	}
}

func (s *chatSession) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case line := <-s.toAgent:
			if err := s.handle(ctx, line); err != nil {
				select {
				case s.errors <- err:
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case s.fromAgent <- append([]chatMessage(nil), s.messages...):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *chatSession) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if rating, comments, ok := parseFeedbackCommand(line); ok {
		return s.sendFeedback(ctx, rating, comments)
	}

	s.messages = append(s.messages, chatMessage{Type: chatMessageTypeHuman, Content: line})
	resp, err := s.client.QueryPost(ctx, models.QueryPostRequest{Text: line})
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	s.lastQuery, s.lastReply = line, resp.Answer
	s.messages = append(s.messages, chatMessage{Type: chatMessageTypeAI, Content: resp.Answer, Provenance: resp.Provenance})
	return nil
}

func (s *chatSession) sendFeedback(ctx context.Context, rating models.Rating, comments string) error {
	if s.lastQuery == "" {
		s.messages = append(s.messages, chatMessage{Type: chatMessageTypeSystem, Content: "There is no answer to give feedback on yet."})
		return nil
	}
	if rating == models.RatingNeedsImprovement && comments == "" {
		s.messages = append(s.messages, chatMessage{Type: chatMessageTypeSystem, Content: "Please describe what needs improving: /improve <comment>"})
		return nil
	}
	_, err := s.client.FeedbackPost(ctx, models.FeedbackPostRequest{
		Query:    s.lastQuery,
		Response: s.lastReply,
		Rating:   rating,
		Comments: comments,
	})
	if err != nil {
		return fmt.Errorf("failed to send feedback: %w", err)
	}
	s.messages = append(s.messages, chatMessage{Type: chatMessageTypeSystem, Content: fmt.Sprintf("Thanks, feedback recorded: %s.", rating)})
	return nil
}

func parseFeedbackCommand(line string) (rating models.Rating, comments string, ok bool) {
	command, comments, _ := strings.Cut(line, " ")
	comments = strings.TrimSpace(comments)
	switch command {
	case "/correct":
		return models.RatingCorrect, comments, true
	case "/incorrect":
		return models.RatingIncorrect, comments, true
	case "/improve":
		return models.RatingNeedsImprovement, comments, true
	}
	return "", "", false
}

// Dracula color scheme.
var (
	Background  = lipgloss.Color("#282a36")
	CurrentLine = lipgloss.Color("#44475a")
	Foreground  = lipgloss.Color("#f8f8f2")
	Comment     = lipgloss.Color("#6272a4")
	Cyan        = lipgloss.Color("#8be9fd")
	Green       = lipgloss.Color("#50fa7b")
	Pink        = lipgloss.Color("#ff79c6")
	Purple      = lipgloss.Color("#bd93f9")
	Red         = lipgloss.Color("#ff5555")
)

var headerStyle = lipgloss.NewStyle().Background(CurrentLine).Foreground(Purple).Bold(true).Margin(1).Padding(1)

var header = `
 __  __       _   _        _                    _   
|  \/  | __ _| |_| |__    / \   __ _  ___ _ __ | |_ 
| |\/| |/ _' | __| '_ \  / _ \ / _' |/ _ \ '_ \| __|
| |  | | (_| | |_| | | |/ ___ \ (_| |  __/ | | | |_ 
|_|  |_|\__,_|\__|_| |_/_/   \_\__, |\___|_| |_|\__|
                               |___/                
`

type model struct {
	viewport viewport.Model
	textarea textarea.Model
	err      error
	ctx      context.Context

	toAgent   chan string
	fromAgent chan []chatMessage
	errors    chan error
}

func newModel(ctx context.Context, toAgent chan string, fromAgent chan []chatMessage, errors chan error) model {
	ta := textarea.New()
	ta.Placeholder = "Ask a math question..."
	ta.Focus()

	ta.Prompt = "┃ "
	ta.CharLimit = 500

	ta.SetHeight(3)

	// Remove cursor line styling
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()

	ta.ShowLineNumbers = false

	vp := viewport.New(80, 20)
	vp.SetContent(headerStyle.Render(header) + "\n" + formatMessage(chatMessage{Type: chatMessageTypeSystem, Content: chatHelp}))

	ta.KeyMap.InsertNewline.SetEnabled(false)

	return model{
		ctx:       ctx,
		textarea:  ta,
		viewport:  vp,
		err:       nil,
		fromAgent: fromAgent,
		toAgent:   toAgent,
		errors:    errors,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.subscribeToAgent(),
		m.subscribeToErrors(),
	)
}

func (m model) subscribeToAgent() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.fromAgent:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m model) subscribeToErrors() tea.Cmd {
	return func() tea.Msg {
		select {
		case x := <-m.errors:
			return x
		case <-m.ctx.Done():
			return nil
		}
	}
}

var messageTypeToStyle = map[chatMessageType]lipgloss.Style{
	chatMessageTypeSystem: lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).MaxWidth(90).Background(Background).Foreground(Green),
	chatMessageTypeHuman:  lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Pink),
	chatMessageTypeAI:     lipgloss.NewStyle().Padding(1).Margin(1).MarginBottom(0).Background(Background).Foreground(Cyan),
}

var messageTypeToIcon = map[chatMessageType]string{
	chatMessageTypeSystem: "🤖",
	chatMessageTypeHuman:  "🥷",
	chatMessageTypeAI:     "✨",
}

var provenanceStyle = lipgloss.NewStyle().Foreground(Comment).Italic(true)

func formatMessage(msg chatMessage) string {
	style, ok := messageTypeToStyle[msg.Type]
	if !ok {
		return msg.Content
	}
	icon, ok := messageTypeToIcon[msg.Type]
	if !ok {
		icon = "🤷"
	}
	wrapped := wordwrap.String(strings.TrimSpace(icon+" "+msg.Content), 80)
	if msg.Provenance != "" {
		wrapped += "\n\n" + provenanceStyle.Render("source: "+msg.Provenance)
	}
	return style.Render(wrapped)
}

var errorStyle = lipgloss.NewStyle().Foreground(Red).Margin(0, 1)

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case error:
		m.err = msg
		return m, m.subscribeToErrors()
	case []chatMessage:
		m.err = nil
		var sb strings.Builder
		sb.WriteString(headerStyle.Render(header))
		sb.WriteString("\n")
		for _, cm := range msg {
			sb.WriteString(formatMessage(cm))
			sb.WriteString("\n")
		}
		m.viewport.SetContent(sb.String())
		m.viewport.GotoBottom()
		return m, m.subscribeToAgent()
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - m.textarea.Height() - 4
		m.textarea.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "ctrl+c":
			return m, tea.Quit
		case "enter":
			v := m.textarea.Value()
			if strings.TrimSpace(v) == "" {
				return m, nil
			}
			m.textarea.Reset()
			return m, m.send(v)
		default:
			var cmd tea.Cmd
			m.textarea, cmd = m.textarea.Update(msg)
			return m, cmd
		}

	case cursor.BlinkMsg:
		// Textarea should also process cursor blinks.
		var cmd tea.Cmd
		m.textarea, cmd = m.textarea.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}

// send hands the line to the session without blocking the UI loop.
func (m model) send(line string) tea.Cmd {
	return func() tea.Msg {
		select {
		case m.toAgent <- line:
		case <-m.ctx.Done():
		}
		return nil
	}
}

func (m model) View() string {
	status := ""
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}
	return fmt.Sprintf("%s\n%s\n%s",
		m.viewport.View(),
		status,
		m.textarea.View(),
	) + "\n\n"
}

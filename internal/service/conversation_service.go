package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harmonygenie/api/internal/client"
	"github.com/harmonygenie/api/internal/model"
)

const greetingMessage = "Hi! I'm your AI music assistant. Tell me what kind of music you'd like to create today."

const agentWarningMessage = "Note: I couldn't reach the chat agent right now. I'll still try to help when you send a message."

// statusLinePrefix marks the one transcript line that is replaced in place
// as the generation advances.
const statusLinePrefix = "Music generation "

// ErrConversationNotFound is returned for unknown conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// ErrGenerationBusy is returned when a message arrives while a generation is
// still in flight for the conversation.
var ErrGenerationBusy = errors.New("a generation is already in progress")

type conversation struct {
	id        string
	messages  []model.ChatMessage
	activeJob string
	track     *model.TrackData
	announced map[string]bool // task ids already announced in the transcript
	createdAt time.Time
}

// ConversationService owns the chat transcripts. State is page-session
// scoped and held in memory; a server restart starts everyone fresh.
type ConversationService struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	agent         client.ChatAgent
}

func NewConversationService(agent client.ChatAgent) *ConversationService {
	return &ConversationService{
		conversations: make(map[string]*conversation),
		agent:         agent,
	}
}

// Create starts a new conversation seeded with the assistant greeting. Agent
// reachability is probed so the client can warn early, but an unreachable
// agent does not block conversation creation.
func (s *ConversationService) Create(ctx context.Context) *model.Conversation {
	conv := &conversation{
		id:        uuid.New().String(),
		announced: make(map[string]bool),
		createdAt: time.Now(),
	}
	conv.messages = append(conv.messages, newMessage(greetingMessage, model.SenderAI))

	if agents, err := s.agent.GetAgents(ctx); err != nil {
		log.Printf("[Conversation] Agent backend unreachable: %v", err)
		conv.messages = append(conv.messages, newMessage(agentWarningMessage, model.SenderAI))
	} else if len(agents) == 0 {
		log.Printf("[Conversation] Agent backend has no registered agents")
		conv.messages = append(conv.messages, newMessage(agentWarningMessage, model.SenderAI))
	}

	s.mu.Lock()
	s.conversations[conv.id] = conv
	s.mu.Unlock()

	return s.view(conv)
}

// Get returns the conversation transcript.
func (s *ConversationService) Get(conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return s.view(conv), nil
}

// AppendUserMessage records the user's message. Fails with ErrGenerationBusy
// while a generation job is active: the input stays locked until the current
// run reaches a terminal state.
func (s *ConversationService) AppendUserMessage(conversationID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	if conv.activeJob != "" {
		return ErrGenerationBusy
	}

	conv.messages = append(conv.messages, newMessage(text, model.SenderUser))
	return nil
}

// AppendAIMessage records an agent or system notification.
func (s *ConversationService) AppendAIMessage(conversationID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}

	conv.messages = append(conv.messages, newMessage(text, model.SenderAI))
	return nil
}

// AnnounceTask appends a "Task created" line once per task id. Repeated
// announcements for the same id are dropped.
func (s *ConversationService) AnnounceTask(conversationID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	if conv.announced[taskID] {
		return nil
	}
	conv.announced[taskID] = true

	conv.messages = append(conv.messages, newMessage(fmt.Sprintf("Task created: %s", taskID), model.SenderAI))
	return nil
}

// UpdateStatusLine keeps exactly one evolving status line at the tail of the
// transcript. When the last message is already a status line it is replaced
// in place; otherwise a new line is appended.
func (s *ConversationService) UpdateStatusLine(conversationID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}

	if n := len(conv.messages); n > 0 {
		last := &conv.messages[n-1]
		if last.Sender == model.SenderAI && strings.HasPrefix(last.Content, statusLinePrefix) {
			last.Content = text
			last.Timestamp = time.Now()
			return nil
		}
	}

	conv.messages = append(conv.messages, newMessage(text, model.SenderAI))
	return nil
}

// SetActiveJob marks a generation job as in flight and locks the input.
func (s *ConversationService) SetActiveJob(conversationID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.activeJob = jobID
	return nil
}

// ClearActiveJob unlocks the input after a terminal outcome.
func (s *ConversationService) ClearActiveJob(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conv, ok := s.conversations[conversationID]; ok {
		conv.activeJob = ""
	}
}

// ActiveJob returns the in-flight job id, if any.
func (s *ConversationService) ActiveJob(conversationID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return "", ErrConversationNotFound
	}
	return conv.activeJob, nil
}

// SetTrack attaches the finished track to the conversation.
func (s *ConversationService) SetTrack(conversationID string, track *model.TrackData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	conv.track = track
	return nil
}

// Track returns the conversation's finished track, if any.
func (s *ConversationService) Track(conversationID string) (*model.TrackData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return conv.track, nil
}

// SendToAgent forwards the user's text to the chat agent and returns the
// reply.
func (s *ConversationService) SendToAgent(ctx context.Context, text string) (string, error) {
	return s.agent.SendMessage(ctx, text)
}

func (s *ConversationService) view(conv *conversation) *model.Conversation {
	messages := make([]model.ChatMessage, len(conv.messages))
	copy(messages, conv.messages)

	return &model.Conversation{
		ID:        conv.id,
		Messages:  messages,
		ActiveJob: conv.activeJob,
		Track:     conv.track,
		CreatedAt: conv.createdAt,
	}
}

func newMessage(content string, sender model.Sender) model.ChatMessage {
	return model.ChatMessage{
		ID:        uuid.New().String(),
		Content:   content,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

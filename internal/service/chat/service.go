package chat

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/zhouzirui/lingualive/backend/internal/model/chat"
	"github.com/zhouzirui/lingualive/backend/internal/service/translate"
	"github.com/zhouzirui/lingualive/backend/pkg/protocol"
)

var (
	ErrEmptyMessage = errors.New("message text is empty")
	ErrInvalidRole  = chat.ErrInvalidRole
)

// Peer 是一个已连接参与者的下行通道。
type Peer interface {
	Send(frame protocol.Frame) error
	Close() error
}

// Participant 描述某个角色当前的连接状态与语言。
type Participant struct {
	Role        chat.Role     `json:"role"`
	Language    chat.Language `json:"lang"`
	Connected   bool          `json:"connected"`
	ConnectedAt *time.Time    `json:"connectedAt,omitempty"`
}

type member struct {
	peer        Peer
	connectedAt time.Time
}

// Service 是 A/B 双方的中继：每个角色最多一个连接，消息按接收方语言逐一翻译。
type Service struct {
	mu          sync.RWMutex
	members     map[chat.Role]member
	languages   map[chat.Role]chat.Language
	subscribers map[int]chan protocol.Relay
	nextSub     int

	translator translate.Translator
	log        *zap.SugaredLogger
	now        func() time.Time
}

// NewService 创建中继服务。
func NewService(translator translate.Translator, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		members:     make(map[chat.Role]member),
		languages:   make(map[chat.Role]chat.Language),
		subscribers: make(map[int]chan protocol.Relay),
		translator:  translator,
		log:         log,
		now:         time.Now,
	}
}

// Join 登记角色的连接；同一角色已有连接时关闭旧连接。
func (s *Service) Join(role chat.Role, peer Peer) error {
	if !role.Valid() {
		return ErrInvalidRole
	}

	s.mu.Lock()
	previous, replaced := s.members[role]
	s.members[role] = member{peer: peer, connectedAt: s.now().UTC()}
	s.mu.Unlock()

	if replaced && previous.peer != peer {
		s.log.Infow("replacing existing connection", "role", role)
		if err := previous.peer.Close(); err != nil {
			s.log.Debugw("close replaced connection", "role", role, "error", err)
		}
	}

	s.log.Infow("participant joined", "role", role, "lang", s.Language(role))
	return nil
}

// Leave 移除角色的连接。只有当前登记的 peer 才会被移除，被替换掉的旧连接调用无效。
func (s *Service) Leave(role chat.Role, peer Peer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.members[role]
	if !ok || current.peer != peer {
		return false
	}
	delete(s.members, role)
	s.log.Infow("participant left", "role", role)
	return true
}

// SetLanguage 记录角色偏好的接收语言，重连后仍然保留。
func (s *Service) SetLanguage(role chat.Role, lang chat.Language) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if !lang.Valid() {
		return chat.ErrUnsupportedLanguage
	}

	s.mu.Lock()
	s.languages[role] = lang
	s.mu.Unlock()

	s.log.Infow("language updated", "role", role, "lang", lang)
	return nil
}

// Language 返回角色的接收语言，未协商过时为英语。
func (s *Service) Language(role chat.Role) chat.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.languageLocked(role)
}

func (s *Service) languageLocked(role chat.Role) chat.Language {
	if lang, ok := s.languages[role]; ok {
		return lang
	}
	return chat.English
}

// Participants 返回 A、B 两个角色的状态。
func (s *Service) Participants() []Participant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map([]chat.Role{chat.RoleA, chat.RoleB}, func(role chat.Role, _ int) Participant {
		p := Participant{Role: role, Language: s.languageLocked(role)}
		if m, ok := s.members[role]; ok {
			at := m.connectedAt
			p.Connected = true
			p.ConnectedAt = &at
		}
		return p
	})
}

type recipient struct {
	role chat.Role
	peer Peer
	lang chat.Language
}

type translation struct {
	text    string
	latency *float64
}

// Broadcast 将 sender 的消息发给所有在线参与者（包括发送方），按各自语言翻译。
// 翻译失败时回退为原文；translate 为 false 时不翻译也不带延迟。
func (s *Service) Broadcast(ctx context.Context, sender chat.Role, text string, wantTranslation bool) (string, error) {
	if !sender.Valid() {
		return "", ErrInvalidRole
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	s.mu.RLock()
	recipients := make([]recipient, 0, len(s.members))
	for role, m := range s.members {
		recipients = append(recipients, recipient{role: role, peer: m.peer, lang: s.languageLocked(role)})
	}
	s.mu.RUnlock()

	sort.Slice(recipients, func(i, j int) bool { return recipients[i].role < recipients[j].role })

	id := uuid.NewString()
	sentAt := s.now()
	source := detectLanguage(text)
	cache := make(map[chat.Language]translation, len(recipients))

	for _, rcpt := range recipients {
		result, ok := cache[rcpt.lang]
		if !ok {
			result = s.translate(ctx, text, source, rcpt.lang, wantTranslation)
			cache[rcpt.lang] = result
		}

		frame := protocol.Relay{
			ID:         id,
			Sender:     sender.String(),
			Original:   text,
			Translated: result.text,
			TargetLang: string(rcpt.lang),
			SourceLang: source,
			Latency:    result.latency,
			Timestamp:  float64(sentAt.UnixNano()) / float64(time.Second),
		}

		if err := rcpt.peer.Send(frame); err != nil {
			s.log.Warnw("relay delivery failed", "id", id, "to", rcpt.role, "error", err)
			continue
		}
		s.log.Debugw("relayed message", "id", id, "from", sender, "to", rcpt.role, "lang", rcpt.lang)
	}

	s.publish(protocol.Relay{
		ID:         id,
		Sender:     sender.String(),
		Original:   text,
		SourceLang: source,
		Timestamp:  float64(sentAt.UnixNano()) / float64(time.Second),
	})

	return id, nil
}

func (s *Service) translate(ctx context.Context, text, source string, target chat.Language, enabled bool) translation {
	if !enabled {
		return translation{text: text}
	}

	start := time.Now()
	out := text
	if !alreadyInTarget(source, target) {
		translated, err := s.translator.Translate(ctx, text, target)
		switch {
		case err != nil:
			s.log.Warnw("translation failed, relaying original", "target", target, "error", err)
		case strings.TrimSpace(translated) != "":
			out = translated
		}
	}

	latency := roundMillis(time.Since(start))
	return translation{text: out, latency: &latency}
}

// Subscribe 订阅所有中继消息（原文），用于旁路观察。返回的函数用于取消订阅。
func (s *Service) Subscribe(buffer int) (<-chan protocol.Relay, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan protocol.Relay, buffer)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Service) publish(frame protocol.Relay) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- frame:
		default:
			s.log.Warnw("subscriber lagging, dropping relay", "subscriber", id, "id", frame.ID)
		}
	}
}

// detectLanguage 返回可靠检测到的 ISO 639-1 代码，否则为空。
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

// devanagari 中的语言共用文字，检测结果常把马拉地语判为印地语，反之亦然。
var devanagari = map[chat.Language]bool{chat.Hindi: true, chat.Marathi: true}

// alreadyInTarget 判断原文是否已是目标语言，可以跳过翻译。
func alreadyInTarget(source string, target chat.Language) bool {
	if source == "" || devanagari[target] {
		return false
	}
	return source == string(target)
}

func roundMillis(d time.Duration) float64 {
	ms := float64(d) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}

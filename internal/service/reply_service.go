// Package service 包含了应用的业务逻辑层。
package service

import (
	"math/rand"
	"strings"

	"nova-chat/internal/model"
)

// keywordTable 按声明顺序匹配，先命中者胜出。
var keywordTable = []model.KeywordEntry{
	{
		Name:     "greeting",
		Keywords: []string{"hello", "hi", "hey"},
		Reply:    "Hi there! I am your friendly web assistant. Ask me anything about the app or just chat!",
	},
	{
		Name:     "help",
		Keywords: []string{"help", "support"},
		Reply:    "Happy to help! Tell me what you need assistance with and I will do my best.",
	},
	{
		Name:     "features",
		Keywords: []string{"features", "capabilities"},
		Reply:    "I can keep track of our conversation, answer quick questions, and offer friendly banter.",
	},
	{
		Name:     "thanks",
		Keywords: []string{"thanks", "thank you"},
		Reply:    "You are very welcome! Let me know if there is anything else you would like to chat about.",
	},
}

var fallbackPool = []string{
	"That is interesting! Can you tell me a bit more?",
	"I am thinking about that. What else would you add?",
	"Good question! I would love to hear your thoughts too.",
	"Let us explore that further. What angle interests you the most?",
}

// KeywordTable 返回关键词表的副本。
func KeywordTable() []model.KeywordEntry {
	out := make([]model.KeywordEntry, len(keywordTable))
	for i, e := range keywordTable {
		out[i] = model.KeywordEntry{
			Name:     e.Name,
			Keywords: append([]string(nil), e.Keywords...),
			Reply:    e.Reply,
		}
	}
	return out
}

// FallbackPool 返回兜底回复池的副本。
func FallbackPool() []string {
	return append([]string(nil), fallbackPool...)
}

// ResolveReply 根据关键词表计算回复。
//
// 匹配是对小写化后输入的子串包含判断，不做分词，"this" 会命中 "hi"。
// 没有命中时从兜底池中均匀随机选一条。
func ResolveReply(message string) string {
	return resolve(message, rand.Intn).Reply
}

func resolve(message string, pick func(n int) int) model.Resolution {
	normalized := strings.ToLower(message)
	for _, entry := range keywordTable {
		for _, keyword := range entry.Keywords {
			if strings.Contains(normalized, keyword) {
				return model.Resolution{Reply: entry.Reply, Rule: entry.Name}
			}
		}
	}
	return model.Resolution{Reply: fallbackPool[pick(len(fallbackPool))], Rule: model.RuleFallback}
}

// ReplyService 定义了回复解析的接口。
type ReplyService interface {
	Resolve(message string) model.Resolution
}

type replyService struct {
	pick func(n int) int
}

// NewReplyService 创建一个使用全局非加密随机源的 ReplyService。
func NewReplyService() ReplyService {
	return &replyService{pick: rand.Intn}
}

// Resolve 返回回复以及命中的规则名。
func (s *replyService) Resolve(message string) model.Resolution {
	return resolve(message, s.pick)
}

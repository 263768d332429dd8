package ratchet

import (
	"time"

	"verbeth/internal/domain"
)

// MatchesSessionTopic classifies which inbound slot a topic hits: the
// current epoch, the pre-computed next epoch, or the previous epoch while
// its grace window is open. Empty string means no match.
func MatchesSessionTopic(s *domain.RatchetSession, topic domain.Topic) domain.TopicMatch {
	if topic == s.CurrentTopicInbound {
		return domain.TopicMatchCurrent
	}
	if s.NextTopicInbound != nil && topic == *s.NextTopicInbound {
		return domain.TopicMatchNext
	}
	if s.PreviousTopicInbound != nil && topic == *s.PreviousTopicInbound &&
		time.Now().UnixMilli() < s.PreviousTopicExpiry {
		return domain.TopicMatchPrevious
	}
	return ""
}

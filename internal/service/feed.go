package service

import (
	"github.com/rs/zerolog/log"

	"github.com/scangate/qrlogin-server-go/internal/model"
	"github.com/scangate/qrlogin-server-go/internal/store"
)

// FeedService is the token-gated post/comment feed. Authorization happens in
// the middleware layer; callers pass the verified token subject as username.
type FeedService struct {
	feed *store.FeedStore
}

func NewFeedService(feed *store.FeedStore) *FeedService {
	return &FeedService{feed: feed}
}

func (s *FeedService) ListPosts() []model.Post {
	return s.feed.ListPosts()
}

func (s *FeedService) CreatePost(username, content string) model.Post {
	post := s.feed.AddPost(username, content)
	log.Info().Int("postId", post.ID).Str("user", username).Msg("post created")
	return post
}

func (s *FeedService) AddComment(postID int, username, content string) (model.Comment, error) {
	comment, err := s.feed.AddComment(postID, username, content)
	if err != nil {
		return model.Comment{}, err
	}
	log.Info().Int("postId", postID).Int("commentId", comment.ID).Str("user", username).Msg("comment added")
	return comment, nil
}

package store

import (
	"errors"
	"sync"
	"time"

	"github.com/scangate/qrlogin-server-go/internal/model"
)

// ErrPostNotFound is returned when a comment references a missing post.
var ErrPostNotFound = errors.New("post not found")

// FeedStore holds the in-memory post/comment feed, newest post first.
// Post ids increment from 1; comment ids start at 1 per post.
type FeedStore struct {
	mu     sync.Mutex
	posts  []*model.Post
	nextID int
}

func NewFeedStore() *FeedStore {
	return &FeedStore{nextID: 1}
}

// ListPosts returns a copy of the feed, newest first.
func (f *FeedStore) ListPosts() []model.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Post, len(f.posts))
	for i, p := range f.posts {
		out[i] = *p
		out[i].Comments = append([]model.Comment(nil), p.Comments...)
	}
	return out
}

// AddPost prepends a new post to the feed.
func (f *FeedStore) AddPost(username, content string) model.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	post := &model.Post{
		ID:        f.nextID,
		Username:  username,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Comments:  []model.Comment{},
	}
	f.nextID++
	f.posts = append([]*model.Post{post}, f.posts...)

	copied := *post
	copied.Comments = []model.Comment{}
	return copied
}

// AddComment appends a comment to the post with the given id.
func (f *FeedStore) AddComment(postID int, username, content string) (model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.posts {
		if p.ID == postID {
			comment := model.Comment{
				ID:        len(p.Comments) + 1,
				Username:  username,
				Content:   content,
				Timestamp: time.Now().UTC(),
			}
			p.Comments = append(p.Comments, comment)
			return comment, nil
		}
	}
	return model.Comment{}, ErrPostNotFound
}

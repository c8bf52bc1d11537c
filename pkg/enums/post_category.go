package enums

import "fmt"

// PostCategory classifies editorial content.
type PostCategory string

const (
	PostCategoryNews         PostCategory = "news"
	PostCategoryEvent        PostCategory = "event"
	PostCategoryAnnouncement PostCategory = "announcement"
	PostCategoryBlog         PostCategory = "blog"
)

var validPostCategories = []PostCategory{
	PostCategoryNews,
	PostCategoryEvent,
	PostCategoryAnnouncement,
	PostCategoryBlog,
}

// String implements fmt.Stringer.
func (p PostCategory) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PostCategory.
func (p PostCategory) IsValid() bool {
	for _, candidate := range validPostCategories {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePostCategory converts raw input into a PostCategory.
func ParsePostCategory(value string) (PostCategory, error) {
	for _, candidate := range validPostCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid post category %q", value)
}

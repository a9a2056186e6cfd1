package model

// Member is the client-facing shape of a community profile.
type Member struct {
	ID            *int64 `json:"id,omitempty"`
	Name          string `json:"name"`
	Avatar        string `json:"avatar,omitempty"`
	Bio           string `json:"bio,omitempty"`
	PostCount     *int   `json:"postCount,omitempty"`
	FollowerCount *int   `json:"followerCount,omitempty"`
	IsFollowing   *bool  `json:"isFollowing,omitempty"`

	Raw Raw `json:"raw,omitempty"`
}

// MapMember builds a Member view-model from a raw server record.
func MapMember(raw Raw) Member {
	m := Member{
		Name: FallbackCommenter,
		Raw:  raw,
	}
	if id, ok := raw.Int("id", "user_id", "member_id"); ok {
		m.ID = int64Ptr(id)
	}
	if name, ok := raw.String("name", "full_name", "user_name"); ok {
		m.Name = name
	}
	m.Avatar, _ = raw.String("avatar", "profile_image")
	m.Bio, _ = raw.String("bio", "description")
	if posts, ok := raw.Int("post_count", "posts"); ok {
		m.PostCount = intPtr(posts)
	}
	if followers, ok := raw.Int("follower_count", "followers"); ok {
		m.FollowerCount = intPtr(followers)
	}
	if following, ok := raw.Bool("is_following", "following"); ok {
		m.IsFollowing = boolPtr(following)
	}
	return m
}

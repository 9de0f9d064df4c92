package handler

import (
	"time"

	"github.com/hitoshi/botdir/internal/model"
)

// userResponse はBotやレビューに埋め込むユーザー情報。
type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID        string       `json:"id"`
	Rating    int          `json:"rating"`
	Comment   string       `json:"comment,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	User      userResponse `json:"user"`
}

// botResponse はBot掲載情報のAPIレスポンス。
type botResponse struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"applicationId"`
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Avatar        string           `json:"avatar,omitempty"`
	Tags          []string         `json:"tags"`
	Votes         int              `json:"votes"`
	ServerCount   *int             `json:"serverCount"`
	Status        string           `json:"status"`
	Approved      bool             `json:"approved"`
	Featured      bool             `json:"featured"`
	InviteURL     string           `json:"inviteUrl"`
	Website       string           `json:"website,omitempty"`
	Support       string           `json:"support,omitempty"`
	GitHub        string           `json:"github,omitempty"`
	Prefix        string           `json:"prefix,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	Reviews       []reviewResponse `json:"reviews"`
	Submitter     userResponse     `json:"submitter"`
}

// applicationResponse はPOST /api/validate-botのレスポンス。
type applicationResponse struct {
	ID                  string `json:"id"`
	ApplicationID       string `json:"applicationId"`
	Name                string `json:"name"`
	Description         string `json:"description"`
	Icon                string `json:"icon,omitempty"`
	Owner               string `json:"owner,omitempty"`
	BotPublic           bool   `json:"bot_public"`
	BotRequireCodeGrant bool   `json:"bot_require_code_grant"`
}

func toUserResponse(u model.UserSummary) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Image: u.Image}
}

func toReviewResponse(r *model.ReviewDetail) reviewResponse {
	return reviewResponse{
		ID:        r.ID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		User:      toUserResponse(r.User),
	}
}

func toReviewResponses(reviews []model.ReviewDetail) []reviewResponse {
	out := make([]reviewResponse, 0, len(reviews))
	for i := range reviews {
		out = append(out, toReviewResponse(&reviews[i]))
	}
	return out
}

// toBotResponse はmodel.BotDetailからAPIレスポンスに変換する。
// tagsとreviewsは空でもnullではなく空配列として返す。
func toBotResponse(b *model.BotDetail) botResponse {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return botResponse{
		ID:            b.ID,
		ApplicationID: b.ApplicationID,
		Name:          b.Name,
		Description:   b.Description,
		Avatar:        b.Avatar,
		Tags:          tags,
		Votes:         b.Votes,
		ServerCount:   b.ServerCount,
		Status:        string(b.Status),
		Approved:      b.Approved,
		Featured:      b.Featured,
		InviteURL:     b.InviteURL,
		Website:       b.Website,
		Support:       b.Support,
		GitHub:        b.GitHub,
		Prefix:        b.Prefix,
		CreatedAt:     b.CreatedAt,
		Reviews:       toReviewResponses(b.Reviews),
		Submitter:     toUserResponse(b.Submitter),
	}
}

func toBotResponses(bots []model.BotDetail) []botResponse {
	out := make([]botResponse, 0, len(bots))
	for i := range bots {
		out = append(out, toBotResponse(&bots[i]))
	}
	return out
}

func toApplicationResponse(app *model.ApplicationInfo) applicationResponse {
	return applicationResponse{
		ID:                  app.ID,
		ApplicationID:       app.ID,
		Name:                app.Name,
		Description:         app.Description,
		Icon:                app.Icon,
		Owner:               app.OwnerName,
		BotPublic:           app.BotPublic,
		BotRequireCodeGrant: app.BotRequireCodeGrant,
	}
}

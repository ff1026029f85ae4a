package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sahihnews/sahihnews/internal/models"
)

func (routes *Routes) PostsRouter(r chi.Router) {
	r.With(routes.EnforceUser).Post("/", routes.AppHandler(routes.PostPost))
	r.Get("/{postID}/consensus", routes.AppHandler(routes.GetConsensus))

	authed := r.With(routes.EnforceUser)
	authed.Put("/{postID}/review", routes.AppHandler(routes.PutReview))
	authed.Delete("/{postID}/review", routes.AppHandler(routes.DeleteReview))
	authed.Post("/{postID}/reaction", routes.AppHandler(routes.PostReaction))
	authed.Post("/{postID}/recompute", routes.AppHandler(routes.PostRecompute))
}

type postReq struct {
	Content    string   `json:"content"`
	SourceURLs []string `json:"sourceUrls"`
}

type postView struct {
	ID         int      `json:"id"`
	AuthorID   int      `json:"authorId"`
	Content    string   `json:"content"`
	SourceURLs []string `json:"sourceUrls"`
	models.Consensus
}

func (routes *Routes) PostPost(w http.ResponseWriter, r *http.Request) AppError {
	var req postReq
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	if req.SourceURLs == nil {
		req.SourceURLs = []string{}
	}
	post, err := routes.engine.CreatePost(r.Context(), GetUser(r).ID, models.PostReq{
		Content:    req.Content,
		SourceURLs: req.SourceURLs,
	})
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusCreated, postView{
		ID:         post.ID,
		AuthorID:   post.AuthorID,
		Content:    post.Content,
		SourceURLs: post.SourceURLs,
		Consensus:  post.Consensus(),
	})
	return nil
}

func (routes *Routes) GetConsensus(w http.ResponseWriter, r *http.Request) AppError {
	postID, appErr := intParam(r, "postID")
	if appErr != nil {
		return appErr
	}
	c, err := routes.engine.GetConsensus(r.Context(), postID)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

type reviewReq struct {
	Verdict string `json:"verdict"`
	Comment string `json:"comment"`
}

func (routes *Routes) PutReview(w http.ResponseWriter, r *http.Request) AppError {
	postID, appErr := intParam(r, "postID")
	if appErr != nil {
		return appErr
	}
	var req reviewReq
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	verdict, err := models.ParseVerdict(req.Verdict)
	if err != nil {
		return ErrFromDomain(err)
	}
	c, err := routes.engine.SubmitReview(r.Context(), postID, GetUser(r).ID, verdict, req.Comment)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

func (routes *Routes) DeleteReview(w http.ResponseWriter, r *http.Request) AppError {
	postID, appErr := intParam(r, "postID")
	if appErr != nil {
		return appErr
	}
	c, err := routes.engine.WithdrawReview(r.Context(), postID, GetUser(r).ID)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

type reactionReq struct {
	Type string `json:"type"`
}

func (routes *Routes) PostReaction(w http.ResponseWriter, r *http.Request) AppError {
	postID, appErr := intParam(r, "postID")
	if appErr != nil {
		return appErr
	}
	var req reactionReq
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	added, err := routes.engine.ToggleReaction(r.Context(), postID, GetUser(r).ID, models.ReactionType(req.Type))
	if err != nil {
		return ErrFromDomain(err)
	}
	c, err := routes.engine.GetConsensus(r.Context(), postID)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, struct {
		Added bool `json:"added"`
		models.Consensus
	}{added, c})
	return nil
}

// PostRecompute re-runs the aggregation of a post. Moderators only.
func (routes *Routes) PostRecompute(w http.ResponseWriter, r *http.Request) AppError {
	postID, appErr := intParam(r, "postID")
	if appErr != nil {
		return appErr
	}
	if err := GetUser(r).Perms().Require(models.PermRecomputeConsensus); err != nil {
		return ErrFromDomain(err)
	}
	c, err := routes.engine.RecomputeConsensus(r.Context(), postID)
	if err != nil {
		return ErrFromDomain(err)
	}
	writeJSON(w, http.StatusOK, c)
	return nil
}

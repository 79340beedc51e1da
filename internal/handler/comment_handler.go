package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/service"
)

type addCommentRequest struct {
	BlogID  entityID `json:"blogId"`
	Name    string   `json:"name"`
	Content string   `json:"content"`
}

type blogCommentsRequest struct {
	BlogID entityID `json:"blogId"`
}

// AddComment 提交读者评论，审核通过前不会公开。
func (a *API) AddComment(c *gin.Context) {
	var req addCommentRequest
	if !bindJSON(c, &req, "Invalid comment payload") {
		return
	}

	err := a.comments.Submit(c.Request.Context(), service.CommentInput{
		BlogID:  uint(req.BlogID),
		Name:    req.Name,
		Content: req.Content,
	})
	if err != nil {
		a.respondServiceError(c, "add comment", err)
		return
	}

	respond(c, http.StatusOK, gin.H{"message": "Comment added for review"})
}

// ListApprovedComments returns approved comments for the blog in the body.
func (a *API) ListApprovedComments(c *gin.Context) {
	var req blogCommentsRequest
	if !bindJSON(c, &req, "Blog id is required") {
		return
	}
	if req.BlogID == 0 {
		respondError(c, http.StatusBadRequest, "Blog id is required")
		return
	}

	comments, err := a.comments.ListApproved(c.Request.Context(), uint(req.BlogID))
	if err != nil {
		a.respondServiceError(c, "list comments", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"comments": comments})
}

// ListComments returns comments for moderation, filtered by ?status=all|approved|pending.
func (a *API) ListComments(c *gin.Context) {
	comments, err := a.comments.List(c.Request.Context(), c.DefaultQuery("status", service.CommentStatusAll))
	if err != nil {
		a.respondServiceError(c, "list comments", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"comments": comments})
}

// ApproveComment makes a comment public.
func (a *API) ApproveComment(c *gin.Context) {
	id, ok := bindID(c, "Comment id is required")
	if !ok {
		return
	}
	if err := a.comments.Approve(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, "approve comment", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Comment approved successfully"})
}

// DeleteComment removes a comment.
func (a *API) DeleteComment(c *gin.Context) {
	id, ok := bindID(c, "Comment id is required")
	if !ok {
		return
	}
	if err := a.comments.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, "delete comment", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

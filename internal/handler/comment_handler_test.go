package handler

import (
	"net/http"
	"testing"

	"github.com/quickblog/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddComment(t *testing.T) {
	ta := newTestAPI(t)

	w := ta.postJSON("/add-comment", `{"blogId":"3","name":"Ann","content":"Nice post"}`, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Comment added for review", body["message"])

	require.Len(t, ta.comments.submitted, 1)
	assert.Equal(t, service.CommentInput{BlogID: 3, Name: "Ann", Content: "Nice post"}, ta.comments.submitted[0])
}

func TestAddCommentValidation(t *testing.T) {
	ta := newTestAPI(t)
	ta.comments.err = &service.ValidationError{Field: "name", Message: "name is required"}

	w := ta.postJSON("/add-comment", `{"blogId":3,"name":"","content":"x"}`, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "name is required", decodeBody(t, w)["message"])

	w = ta.postJSON("/add-comment", `{"blogId":[1]}`, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid comment payload", decodeBody(t, w)["message"])
}

func TestListApprovedComments(t *testing.T) {
	ta := newTestAPI(t)

	w := ta.postJSON("/comments", `{"blogId":3}`, false)
	require.Equal(t, http.StatusOK, w.Code)
	comments := decodeBody(t, w)["comments"].([]interface{})
	require.Len(t, comments, 1)
	assert.EqualValues(t, 3, comments[0].(map[string]interface{})["blogId"])

	w = ta.postJSON("/comments", `{}`, false)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Blog id is required", decodeBody(t, w)["message"])
}

func TestListCommentsStatusFilter(t *testing.T) {
	ta := newTestAPI(t)

	w := ta.get("/admin/comments", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.CommentStatusAll, ta.comments.lastStatus)

	w = ta.get("/admin/comments?status=pending", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pending", ta.comments.lastStatus)

	w = ta.get("/admin/comments", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestModerateComments(t *testing.T) {
	ta := newTestAPI(t)

	w := ta.postJSON("/approve", `{"id":4}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment approved successfully", decodeBody(t, w)["message"])
	assert.Equal(t, []uint{4}, ta.comments.approved)

	w = ta.postJSON("/delete-comment", `{"id":"5"}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Comment deleted successfully", decodeBody(t, w)["message"])
	assert.Equal(t, []uint{5}, ta.comments.deleted)

	ta.comments.err = service.ErrCommentNotFound
	w = ta.postJSON("/approve", `{"id":9}`, true)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Comment not found", decodeBody(t, w)["message"])

	w = ta.postJSON("/delete-comment", `{"id":0}`, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Comment id is required", decodeBody(t, w)["message"])
}

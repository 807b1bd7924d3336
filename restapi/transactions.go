package restapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sharedcode/xa/participant"
)

var ctx = context.TODO()

type transactionsRestApi struct {
	participant participant.Participant
}

func NewTransactionsRestApi(p participant.Participant) *transactionsRestApi {
	return &transactionsRestApi{participant: p}
}

// GetTransactions godoc
// @Summary GetTransactions returns the prepared transaction branches
// @Schemes
// @Description GetTransactions responds with every branch currently in the prepared state, as JSON.
// @Tags Transactions
// @Accept json
// @Produce json
// @Failure 404 {object} map[string]any
// @Success 200 {object} []xa.PreparedTransactionInfo
// @Router /transactions [get]
// @Security Bearer
func (tra *transactionsRestApi) GetTransactions(c *gin.Context) {
	infos, err := tra.participant.ListPreparedTransactions(ctx)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "fetching prepared transactions list failed"})
		return
	}

	c.IndentedJSON(http.StatusOK, infos)
}

// GetTransactionByXid godoc
// @Summary GetTransactionByXid returns one prepared transaction branch
// @Schemes
// @Description GetTransactionByXid responds with the prepared branch matching the xid, 404 when absent.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param xid path string true "transaction branch identifier"
// @Failure 404 {object} map[string]any
// @Success 200 {object} xa.PreparedTransactionInfo
// @Router /transactions/{xid} [get]
// @Security Bearer
func (tra *transactionsRestApi) GetTransactionByXid(c *gin.Context) {
	xid := c.Param("xid")
	info, err := tra.participant.FindPreparedTransaction(ctx, xid)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "fetching prepared transaction failed"})
		return
	}
	if info == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "no prepared transaction with xid " + xid})
		return
	}

	c.IndentedJSON(http.StatusOK, info)
}

// CommitTransaction godoc
// @Summary CommitTransaction commits a prepared branch by xid
// @Schemes
// @Description CommitTransaction issues the commit-by-xid recovery operation on the branch.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param xid path string true "transaction branch identifier"
// @Failure 404 {object} map[string]any
// @Success 200 {object} map[string]any
// @Router /transactions/{xid}/commit [post]
// @Security Bearer
func (tra *transactionsRestApi) CommitTransaction(c *gin.Context) {
	xid := c.Param("xid")
	if err := tra.participant.CommitByXid(ctx, xid); err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "commit of " + xid + " failed"})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"xid": xid, "resolution": "committed"})
}

// RollbackTransaction godoc
// @Summary RollbackTransaction rolls back a prepared branch by xid
// @Schemes
// @Description RollbackTransaction issues the rollback-by-xid recovery operation on the branch.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param xid path string true "transaction branch identifier"
// @Failure 404 {object} map[string]any
// @Success 200 {object} map[string]any
// @Router /transactions/{xid}/rollback [post]
// @Security Bearer
func (tra *transactionsRestApi) RollbackTransaction(c *gin.Context) {
	xid := c.Param("xid")
	if err := tra.participant.RollbackByXid(ctx, xid); err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "rollback of " + xid + " failed"})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"xid": xid, "resolution": "rolled back"})
}

// CleanupTransactions godoc
// @Summary CleanupTransactions rolls back stale prepared branches
// @Schemes
// @Description CleanupTransactions rolls back every prepared branch whose xid starts with the prefix & responds with the count.
// @Tags Transactions
// @Accept json
// @Produce json
// @Param prefix query string true "xid prefix of the branches to roll back"
// @Failure 404 {object} map[string]any
// @Success 200 {object} map[string]any
// @Router /transactions/cleanup [post]
// @Security Bearer
func (tra *transactionsRestApi) CleanupTransactions(c *gin.Context) {
	prefix := c.Query("prefix")
	if prefix == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "prefix query parameter is required"})
		return
	}
	count, err := tra.participant.CleanupStaleTransactions(ctx, prefix)
	if err != nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "cleanup with prefix " + prefix + " failed"})
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"prefix": prefix, "cleaned": count})
}

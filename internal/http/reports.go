package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/cryptofono/cryptofono/internal/model"
	"github.com/cryptofono/cryptofono/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listTransactionsHandler(chRepo repository.CHTransactionsRepository, network string) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var accountID int64
		if v := c.QueryParam("account_id"); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				accountID = n
			}
		}

		var txType model.TxType
		if raw := strings.TrimSpace(c.QueryParam("type")); raw != "" {
			tmp := model.TxType(raw)
			if tmp.Valid() {
				txType = tmp
			}
		}

		txs, err := chRepo.List(c.Request().Context(), network, accountID, txType, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(txs),
			"results": txs,
		})
	}
}

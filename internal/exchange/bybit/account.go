package bybit

import (
	"context"
	"fmt"
)

// Balance represents a coin balance in the unified account
type Balance struct {
	Coin          string `json:"coin"`
	WalletBalance string `json:"walletBalance"`
	Locked        string `json:"locked"`
}

// GetWalletBalances retrieves the unified account coin balances.
func (c *Client) GetWalletBalances(ctx context.Context) ([]Balance, error) {
	params := map[string]interface{}{
		"accountType": "UNIFIED",
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetAccountWallet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balance: %w", err)
	}

	var walletResult struct {
		List []struct {
			AccountType string    `json:"accountType"`
			Coin        []Balance `json:"coin"`
		} `json:"list"`
	}
	if err := decodeResult(result, &walletResult); err != nil {
		return nil, err
	}
	if len(walletResult.List) == 0 {
		return nil, fmt.Errorf("no account data found")
	}
	return walletResult.List[0].Coin, nil
}

package constants

// MeteoraDLMM is the program id of the Meteora DLMM liquidity program.
const MeteoraDLMM = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"

// WrappedSOL is the mint of the chain's native asset in SPL form.
const WrappedSOL = "So11111111111111111111111111111111111111112"

// LamportsPerSOL is the native decimal scale.
const LamportsPerSOL = 1e9

// StableMints are assets treated as pegged to 1 USD.
var StableMints = map[string]string{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": "USDC",
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": "USDT",
}

// SeedPools are high-liquidity DLMM pools probed by the wallet-level
// pool-scan fallback when no position identifier is known.
var SeedPools = []string{
	"5rCf1DM8LjKTw4YqhnoLcngyZYeNnQqztScTogYHAS6", // SOL-USDC
	"BGm1tav58oGcsQJehL9WXBFXF7D27vZsKefj4xJKD5Y",  // SOL-USDT
	"Hj8pCdTZkPkeWjQ2absMp2d1H6GDbTBEMHzV5zzCFvew", // JUP-SOL
}

// IsStable reports whether the mint is a known USD-pegged asset.
func IsStable(mint string) bool {
	_, ok := StableMints[mint]
	return ok
}

package exec

// signer.go - Native Go EIP-712 signing for the Polymarket CTF Exchange
// Based on: https://github.com/Polymarket/py-order-utils

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"math/rand"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/shopspring/decimal"
)

// Polymarket CTF Exchange (Polygon Mainnet)
const (
	PolygonChainID     = 137
	CTFExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	ZeroAddress        = "0x0000000000000000000000000000000000000000"
)

// Signature types
const (
	SignatureTypeEOA        = 0 // Externally Owned Account
	SignatureTypePolyProxy  = 1 // Polymarket Proxy (email login)
	SignatureTypeGnosisSafe = 2 // Gnosis Safe
)

// On-chain order sides
const (
	sideBuy  = 0
	sideSell = 1
)

const clobAuthMessage = "This message attests that I control the given wallet"

// token amounts carry 6 decimals
const tokenDecimals = 6

// CTFOrder is an unsigned CTF Exchange order
type CTFOrder struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          uint8
	SignatureType uint8
}

// SignedCTFOrder is an order with its signature
type SignedCTFOrder struct {
	Order     *CTFOrder
	Signature string
}

// OrderParams are the economic terms of one order
type OrderParams struct {
	TokenID    string
	Price      decimal.Decimal
	Size       decimal.Decimal
	Side       Side
	FeeRateBps int64
	Nonce      int64
	// Expiration is a unix timestamp, 0 for none
	Expiration int64
}

// OrderSigner builds and signs orders for one wallet
type OrderSigner struct {
	privateKey    *ecdsa.PrivateKey
	signerAddress common.Address
	funderAddress common.Address
	chainID       int64
	exchangeAddr  common.Address
	signatureType int
}

// NewOrderSigner creates an EIP-712 order signer. A zero funder means the
// signer holds the funds.
func NewOrderSigner(privateKey *ecdsa.PrivateKey, funder common.Address, signatureType int) *OrderSigner {
	return &OrderSigner{
		privateKey:    privateKey,
		signerAddress: crypto.PubkeyToAddress(privateKey.PublicKey),
		funderAddress: funder,
		chainID:       PolygonChainID,
		exchangeAddr:  common.HexToAddress(CTFExchangeAddress),
		signatureType: signatureType,
	}
}

// Address is the signing wallet
func (s *OrderSigner) Address() common.Address {
	return s.signerAddress
}

// CreateOrder builds an unsigned order from p
func (s *OrderSigner) CreateOrder(p OrderParams) (*CTFOrder, error) {
	tokenID, ok := new(big.Int).SetString(p.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid tokenID %q", p.TokenID)
	}

	makerAmount, takerAmount := orderAmounts(p.Side, p.Price, p.Size)
	if makerAmount.Sign() <= 0 || takerAmount.Sign() <= 0 {
		return nil, fmt.Errorf("order amounts round to zero (price %s, size %s)", p.Price, p.Size)
	}

	side := uint8(sideBuy)
	if p.Side == SideSell {
		side = sideSell
	}

	maker := s.funderAddress
	if maker == (common.Address{}) {
		maker = s.signerAddress
	}

	return &CTFOrder{
		Salt:          generateSalt(),
		Maker:         maker,
		Signer:        s.signerAddress,
		Taker:         common.HexToAddress(ZeroAddress), // public order
		TokenID:       tokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Expiration:    big.NewInt(p.Expiration),
		Nonce:         big.NewInt(p.Nonce),
		FeeRateBps:    big.NewInt(p.FeeRateBps),
		Side:          side,
		SignatureType: uint8(s.signatureType),
	}, nil
}

// orderAmounts converts price and size into maker/taker token units.
// Buying gives USDC (maker) for shares (taker); selling is the reverse.
// USDC spent is truncated so it never exceeds price*size.
func orderAmounts(side Side, price, size decimal.Decimal) (maker, taker *big.Int) {
	shares := size.Round(4)
	usdc := size.Mul(price)

	if side == SideSell {
		return toUnits(shares), toUnits(usdc.Round(4))
	}
	return toUnits(usdc.Truncate(4)), toUnits(shares)
}

func toUnits(d decimal.Decimal) *big.Int {
	return d.Shift(tokenDecimals).BigInt()
}

// SignOrder signs an order using EIP-712
func (s *OrderSigner) SignOrder(order *CTFOrder) (*SignedCTFOrder, error) {
	typedData := s.buildTypedData(order)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	// keccak256("\x19\x01" || domainSeparator || messageHash)
	rawData := append([]byte{0x19, 0x01}, domainSeparator...)
	rawData = append(rawData, messageHash...)

	sig, err := s.sign(crypto.Keccak256(rawData))
	if err != nil {
		return nil, err
	}

	return &SignedCTFOrder{Order: order, Signature: sig}, nil
}

// CreateSignedOrder creates and signs an order in one call
func (s *OrderSigner) CreateSignedOrder(p OrderParams) (*SignedCTFOrder, error) {
	order, err := s.CreateOrder(p)
	if err != nil {
		return nil, err
	}
	return s.SignOrder(order)
}

func (s *OrderSigner) buildTypedData(order *CTFOrder) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Order": {
				{Name: "salt", Type: "uint256"},
				{Name: "maker", Type: "address"},
				{Name: "signer", Type: "address"},
				{Name: "taker", Type: "address"},
				{Name: "tokenId", Type: "uint256"},
				{Name: "makerAmount", Type: "uint256"},
				{Name: "takerAmount", Type: "uint256"},
				{Name: "expiration", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "feeRateBps", Type: "uint256"},
				{Name: "side", Type: "uint8"},
				{Name: "signatureType", Type: "uint8"},
			},
		},
		PrimaryType: "Order",
		Domain: apitypes.TypedDataDomain{
			Name:              "Polymarket CTF Exchange",
			Version:           "1",
			ChainId:           math.NewHexOrDecimal256(s.chainID),
			VerifyingContract: s.exchangeAddr.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          order.Salt.String(),
			"maker":         order.Maker.Hex(),
			"signer":        order.Signer.Hex(),
			"taker":         order.Taker.Hex(),
			"tokenId":       order.TokenID.String(),
			"makerAmount":   order.MakerAmount.String(),
			"takerAmount":   order.TakerAmount.String(),
			"expiration":    order.Expiration.String(),
			"nonce":         order.Nonce.String(),
			"feeRateBps":    order.FeeRateBps.String(),
			"side":          strconv.Itoa(int(order.Side)),
			"signatureType": strconv.Itoa(int(order.SignatureType)),
		},
	}
}

// SignClobAuth signs the L1 ClobAuth message used to derive API keys.
// Domain: {name: "ClobAuthDomain", version: "1", chainId: 137}
func (s *OrderSigner) SignClobAuth(timestamp, nonce int64) (string, error) {
	domainTypeHash := crypto.Keccak256Hash([]byte("EIP712Domain(string name,string version,uint256 chainId)"))
	domainSeparator := crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte("ClobAuthDomain")),
		crypto.Keccak256([]byte("1")),
		common.LeftPadBytes(big.NewInt(s.chainID).Bytes(), 32),
	)

	authTypeHash := crypto.Keccak256Hash([]byte("ClobAuth(address address,string timestamp,uint256 nonce,string message)"))

	authAddress := s.funderAddress
	if authAddress == (common.Address{}) {
		authAddress = s.signerAddress
	}

	structHash := crypto.Keccak256Hash(
		authTypeHash.Bytes(),
		common.LeftPadBytes(authAddress.Bytes(), 32),
		crypto.Keccak256([]byte(strconv.FormatInt(timestamp, 10))),
		common.LeftPadBytes(big.NewInt(nonce).Bytes(), 32),
		crypto.Keccak256([]byte(clobAuthMessage)),
	)

	rawData := append([]byte{0x19, 0x01}, domainSeparator.Bytes()...)
	rawData = append(rawData, structHash.Bytes()...)

	return s.sign(crypto.Keccak256(rawData))
}

// sign returns a 0x-prefixed signature with V in {27, 28}
func (s *OrderSigner) sign(hash []byte) (string, error) {
	sig, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return fmt.Sprintf("0x%x", sig), nil
}

// generateSalt matches the py-clob-client salt range (fits in int64)
func generateSalt() *big.Int {
	return big.NewInt(rand.Int63())
}

// ToAPIPayload converts a signed order to the POST /order body. The
// signature goes inside the order; owner is the API key, not the maker.
func (o *SignedCTFOrder) ToAPIPayload(apiKey string, orderType OrderType) map[string]interface{} {
	side := SideBuy
	if o.Order.Side == sideSell {
		side = SideSell
	}

	return map[string]interface{}{
		"order": map[string]interface{}{
			"salt":          o.Order.Salt.Int64(),
			"maker":         o.Order.Maker.Hex(),
			"signer":        o.Order.Signer.Hex(),
			"taker":         o.Order.Taker.Hex(),
			"tokenId":       o.Order.TokenID.String(),
			"makerAmount":   o.Order.MakerAmount.String(),
			"takerAmount":   o.Order.TakerAmount.String(),
			"expiration":    o.Order.Expiration.String(),
			"nonce":         o.Order.Nonce.String(),
			"feeRateBps":    o.Order.FeeRateBps.String(),
			"side":          string(side),
			"signatureType": int(o.Order.SignatureType),
			"signature":     o.Signature,
		},
		"owner":     apiKey,
		"orderType": string(orderType),
		"postOnly":  false,
	}
}

package launchpad

import (
	"math"
	"math/bits"
)

// assertAllowsPurchase checks the settlement flag and both caps for a buy of
// amount by buyer.
func (s *SaleState) assertAllowsPurchase(cfg *SaleConfig, buyer [20]byte, amount uint64) error {
	if s.Status == SaleStatusSettled {
		return ErrSaleSettled
	}
	sold, ok := addUint64(s.Sold, amount)
	if !ok {
		return ErrArithmeticOverflow
	}
	if sold > cfg.GlobalCap {
		return ErrCapExceeded
	}
	if cfg.WalletCap > 0 {
		total, ok := addUint64(s.Purchased(buyer), amount)
		if !ok {
			return ErrArithmeticOverflow
		}
		if total > cfg.WalletCap {
			return ErrWalletCapExceeded
		}
	}
	return nil
}

// recordPurchase applies an accepted buy to the ledger.
func (s *SaleState) recordPurchase(cfg *SaleConfig, buyer [20]byte, amount, quoteAmount uint64) error {
	sold, ok := addUint64(s.Sold, amount)
	if !ok {
		return ErrArithmeticOverflow
	}
	proceeds, ok := addUint64(s.Proceeds, quoteAmount)
	if !ok {
		return ErrArithmeticOverflow
	}
	if err := s.upsertBuyer(cfg, buyer, amount); err != nil {
		return err
	}
	s.Sold = sold
	s.Proceeds = proceeds
	s.activate()
	return nil
}

// recordSell returns amount tokens to curve inventory and debits the seller's
// tracked total.
func (s *SaleState) recordSell(seller [20]byte, amount, quoteAmount uint64) error {
	if amount > s.Sold {
		return ErrSellExceedsTracked
	}
	if quoteAmount > s.Proceeds {
		return ErrArithmeticOverflow
	}
	idx, entry, ok := s.FindBuyer(seller)
	if !ok {
		return ErrUnknownBuyer
	}
	if amount > entry.Purchased {
		return ErrSellExceedsTracked
	}
	s.Sold -= amount
	s.Proceeds -= quoteAmount
	s.Buyers[idx].Purchased -= amount
	return nil
}

// MinimumNextBid returns the smallest acceptable bid given the current
// highest bid, or the floor when no bid exists.
func (s *SaleState) MinimumNextBid(params AuctionParams) (uint64, error) {
	if s.HighestBid == 0 {
		return params.FloorPrice, nil
	}
	hi, lo := bits.Mul64(s.HighestBid, uint64(params.MinIncrementBps))
	if hi != 0 {
		return 0, ErrArithmeticOverflow
	}
	increment := lo / 10_000
	if increment < 1 {
		increment = 1
	}
	required, ok := addUint64(s.HighestBid, increment)
	if !ok {
		return 0, ErrArithmeticOverflow
	}
	if required < params.FloorPrice {
		required = params.FloorPrice
	}
	return required, nil
}

// recordBid validates and applies a bid at time now.
func (s *SaleState) recordBid(cfg *SaleConfig, params AuctionParams, bidder [20]byte, amount uint64, now int64) error {
	if amount < params.FloorPrice {
		return ErrBidBelowReserve
	}
	end := s.CurrentAuctionEnd(cfg)
	if now >= end {
		return ErrAuctionClosed
	}
	if s.HighestBid > 0 {
		required, err := s.MinimumNextBid(params)
		if err != nil {
			return err
		}
		if amount < required {
			return ErrBidTooLow
		}
	}
	if params.Kind == AuctionKindEnglish && end-now <= params.AntiSnipeSeconds {
		if now > math.MaxInt64-params.AntiSnipeSeconds {
			return ErrArithmeticOverflow
		}
		s.AuctionEnd = now + params.AntiSnipeSeconds
	}
	s.HighestBid = amount
	s.HighestBidder = bidder
	s.Proceeds = amount
	s.activate()
	return nil
}

// settleAuction closes an auction whose deadline has passed.
func (s *SaleState) settleAuction(cfg *SaleConfig, params AuctionParams, now int64) error {
	if now < s.CurrentAuctionEnd(cfg) {
		return ErrAuctionStillActive
	}
	if params.Kind == AuctionKindDutch {
		s.Sold = cfg.GlobalCap
	}
	s.Status = SaleStatusSettled
	return nil
}

// upsertBuyer tracks purchases only while a wallet cap is enforced.
func (s *SaleState) upsertBuyer(cfg *SaleConfig, buyer [20]byte, amount uint64) error {
	if cfg.WalletCap == 0 {
		return nil
	}
	if idx, entry, ok := s.FindBuyer(buyer); ok {
		total, ok := addUint64(entry.Purchased, amount)
		if !ok {
			return ErrArithmeticOverflow
		}
		s.Buyers[idx].Purchased = total
		return nil
	}
	if int(s.BuyerCount) >= MaxTrackedBuyers {
		return ErrBuyerCapacityExceeded
	}
	s.Buyers[s.BuyerCount] = BuyerContribution{Buyer: buyer, Purchased: amount}
	s.BuyerCount++
	return nil
}

func (s *SaleState) activate() {
	if s.Status == SaleStatusPending {
		s.Status = SaleStatusActive
	}
}

func addUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

package domain

import "testing"

func TestComputeEarningsFlat(t *testing.T) {
	reward := &Reward{Type: RewardTypeFlat, Amount: 500}
	if got := ComputeEarnings(reward, 10000, 3); got != 1500 {
		t.Fatalf("expected 1500, got %d", got)
	}
}

func TestComputeEarningsPercentage(t *testing.T) {
	reward := &Reward{Type: RewardTypePercentage, Amount: 10}
	if got := ComputeEarnings(reward, 10000, 1); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
}

func TestComputeEarningsPercentageFloors(t *testing.T) {
	reward := &Reward{Type: RewardTypePercentage, Amount: 15}
	// 15% of 999 is 149.85, integer division floors to 149.
	if got := ComputeEarnings(reward, 999, 1); got != 149 {
		t.Fatalf("expected 149, got %d", got)
	}
}

func TestComputeEarningsZeroAmount(t *testing.T) {
	reward := &Reward{Type: RewardTypePercentage, Amount: 20}
	if got := ComputeEarnings(reward, 0, 1); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestComputeEarningsNilReward(t *testing.T) {
	if got := ComputeEarnings(nil, 10000, 1); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

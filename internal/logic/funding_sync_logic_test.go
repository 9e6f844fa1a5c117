package logic

import (
	"context"
	"testing"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/model"
)

func deployedProject(id int64, address string) *model.Project {
	p := pendingProject(id)
	p.ContractAddress = address
	p.TotalNft = 115
	p.NftPrice = 10
	return p
}

func TestSyncOverwritesFundingFields(t *testing.T) {
	store := newFakeStore(deployedProject(1, contractAddr))
	ledger := &fakeLedger{
		data: map[string]*chain.ProjectData{
			contractAddr: {MintedCount: 85},
		},
	}
	l := NewFundingSyncLogic(store, ledger)

	result, err := l.Sync(context.Background(), 1)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if result.MintedNft != 85 {
		t.Errorf("minted = %d, want 85", result.MintedNft)
	}
	if result.FundedAmount != 850 {
		t.Errorf("funded amount = %d, want 850", result.FundedAmount)
	}

	fields := store.updates[1]
	if fields == nil {
		t.Fatal("record was not updated")
	}
	if fields["minted_nft"] != int64(85) || fields["funded_nft"] != int64(85) {
		t.Errorf("stored nft counts = %v / %v, want 85", fields["minted_nft"], fields["funded_nft"])
	}
	if fields["funded_amount"] != int64(850) {
		t.Errorf("stored funded_amount = %v, want 850", fields["funded_amount"])
	}
}

func TestSyncOverwritesDownwardAfterReset(t *testing.T) {
	p := deployedProject(1, contractAddr)
	p.MintedNft = 100
	p.FundedNft = 100
	p.FundedAmount = 1000
	store := newFakeStore(p)
	ledger := &fakeLedger{
		data: map[string]*chain.ProjectData{
			contractAddr: {MintedCount: 40},
		},
	}
	l := NewFundingSyncLogic(store, ledger)

	result, err := l.Sync(context.Background(), 1)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	// 覆盖而非累加：链上重置后铸造数回落，记录必须跟着回落
	if result.MintedNft != 40 || result.FundedAmount != 400 {
		t.Errorf("result = minted %d funded %d, want 40 / 400", result.MintedNft, result.FundedAmount)
	}
}

func TestSyncIdempotent(t *testing.T) {
	store := newFakeStore(deployedProject(1, contractAddr))
	ledger := &fakeLedger{
		data: map[string]*chain.ProjectData{
			contractAddr: {MintedCount: 85},
		},
	}
	l := NewFundingSyncLogic(store, ledger)

	first, err := l.Sync(context.Background(), 1)
	if err != nil {
		t.Fatalf("first Sync failed: %v", err)
	}
	firstFields := store.updates[1]

	// 链上读数不变时重复同步必须得到完全相同的结果与落库字段
	second, err := l.Sync(context.Background(), 1)
	if err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	secondFields := store.updates[1]

	if *first != *second {
		t.Errorf("results differ: first %+v, second %+v", first, second)
	}
	for _, key := range []string{"minted_nft", "funded_nft", "funded_amount"} {
		if firstFields[key] != secondFields[key] {
			t.Errorf("stored %s differs: first %v, second %v", key, firstFields[key], secondFields[key])
		}
	}
}

func TestSyncRequiresContractAddress(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	l := NewFundingSyncLogic(store, &fakeLedger{})

	_, err := l.Sync(context.Background(), 1)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestSyncUnknownProject(t *testing.T) {
	l := NewFundingSyncLogic(newFakeStore(), &fakeLedger{})

	_, err := l.Sync(context.Background(), 42)
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	good := deployedProject(1, contractAddr)
	bad := deployedProject(2, "0x5555555555555555555555555555555555555555")
	store := newFakeStore(good, bad)
	ledger := &fakeLedger{
		// bad的地址没有链上数据，单项目失败不阻断其余项目
		data: map[string]*chain.ProjectData{
			contractAddr: {MintedCount: 10},
		},
	}
	l := NewFundingSyncLogic(store, ledger)

	synced, err := l.SyncAll(context.Background())
	if err != nil {
		t.Fatalf("SyncAll failed: %v", err)
	}
	if synced != 1 {
		t.Errorf("synced = %d, want 1", synced)
	}
}

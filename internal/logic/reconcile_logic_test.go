package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/model"
)

// fakeStore 内存项目存储
type fakeStore struct {
	projects  map[int64]*model.Project
	updates   map[int64]map[string]interface{}
	updateErr error
}

func newFakeStore(projects ...*model.Project) *fakeStore {
	s := &fakeStore{
		projects: make(map[int64]*model.Project),
		updates:  make(map[int64]map[string]interface{}),
	}
	for _, p := range projects {
		s.projects[p.Id] = p
	}
	return s
}

func (s *fakeStore) Create(project *model.Project) error {
	project.Id = int64(len(s.projects) + 1)
	s.projects[project.Id] = project
	return nil
}

func (s *fakeStore) FindById(id int64) (*model.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "project %d not found", id)
	}
	copied := *p
	return &copied, nil
}

func (s *fakeStore) FindPending() ([]model.Project, error) {
	var result []model.Project
	for _, p := range s.projects {
		if !p.AdminAgree {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (s *fakeStore) FindDeployed() ([]model.Project, error) {
	var result []model.Project
	for _, p := range s.projects {
		if p.Deployed() {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (s *fakeStore) FindUndeployedByTitle(title string) (*model.Project, error) {
	for _, p := range s.projects {
		if p.Title == title && !p.Deployed() {
			copied := *p
			return &copied, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "no undeployed project titled %q", title)
}

func (s *fakeStore) List(fundingStatus string) ([]model.Project, error) {
	var result []model.Project
	for _, p := range s.projects {
		if fundingStatus == "" || string(p.FundingStatus) == fundingStatus {
			result = append(result, *p)
		}
	}
	return result, nil
}

func (s *fakeStore) ContractAddresses() (map[string]bool, error) {
	known := make(map[string]bool)
	for _, p := range s.projects {
		if p.ContractAddress != "" {
			known[p.ContractAddress] = true
		}
	}
	return known, nil
}

func (s *fakeStore) UpdateFields(id int64, fields map[string]interface{}) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	if _, ok := s.projects[id]; !ok {
		return apperr.New(apperr.KindNotFound, "project %d not found", id)
	}
	s.updates[id] = fields
	return nil
}

// fakeDeployments 内存部署审计存储
type fakeDeployments struct {
	records []model.Deployment
}

func (d *fakeDeployments) Create(deployment *model.Deployment) error {
	deployment.Id = int64(len(d.records) + 1)
	d.records = append(d.records, *deployment)
	return nil
}

func (d *fakeDeployments) FindOrphaned() ([]model.Deployment, error) {
	var orphans []model.Deployment
	for _, r := range d.records {
		if r.Status == model.DeploymentStatusOrphaned {
			orphans = append(orphans, r)
		}
	}
	return orphans, nil
}

func (d *fakeDeployments) UpdateStatus(id int64, status model.DeploymentStatus) error {
	for i := range d.records {
		if d.records[i].Id == id {
			d.records[i].Status = status
			return nil
		}
	}
	return apperr.New(apperr.KindNotFound, "deployment %d not found", id)
}

// fakeLedger 可编程链上账本
type fakeLedger struct {
	enumerations [][]string // 依次返回给ListProjectAddresses的序列
	enumCalls    int
	receipt      *chain.DeployReceipt
	createErr    error
	createCalls  int
	data         map[string]*chain.ProjectData
	names        map[string]string
}

func (l *fakeLedger) ListProjectAddresses(ctx context.Context) ([]string, error) {
	if l.enumCalls >= len(l.enumerations) {
		return nil, nil
	}
	addrs := l.enumerations[l.enumCalls]
	l.enumCalls++
	return addrs, nil
}

func (l *fakeLedger) CreateProject(ctx context.Context, p chain.CreateProjectParams) (*chain.DeployReceipt, error) {
	l.createCalls++
	if l.createErr != nil {
		return nil, l.createErr
	}
	return l.receipt, nil
}

func (l *fakeLedger) ProjectData(ctx context.Context, address string) (*chain.ProjectData, error) {
	data, ok := l.data[address]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "no data for %s", address)
	}
	return data, nil
}

func (l *fakeLedger) ProjectName(ctx context.Context, address string) (string, error) {
	name, ok := l.names[address]
	if !ok {
		return "", apperr.New(apperr.KindNotFound, "no name for %s", address)
	}
	return name, nil
}

func (l *fakeLedger) FactoryAddress() string      { return "0x00000000000000000000000000000000000000aa" }
func (l *fakeLedger) PaymentTokenAddress() string { return "0x00000000000000000000000000000000000000bb" }

const (
	farmerAddr   = "0x1111111111111111111111111111111111111111"
	contractAddr = "0x2222222222222222222222222222222222222222"
)

func pendingProject(id int64) *model.Project {
	p := &model.Project{
		Id:           id,
		Title:        "Guava Orchard",
		Symbol:       "GUA",
		BuildCost:    1150,
		AnnualIncome: 312,
	}
	p.ApplyStage(model.StagePendingReview)
	return p
}

func validParams() ApproveParams {
	return ApproveParams{TotalNFTs: 115, NftPrice: 10, FarmerAddress: farmerAddr}
}

func TestApproveDeploysAndUpdatesRecord(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	deployments := &fakeDeployments{}
	ledger := &fakeLedger{
		receipt: &chain.DeployReceipt{TxHash: "0xdead", ContractAddress: contractAddr},
	}

	l := NewReconcileLogic(store, deployments, ledger)
	result, err := l.Approve(context.Background(), 1, validParams())
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	if result.ContractAddress != contractAddr {
		t.Errorf("contract address = %s, want %s", result.ContractAddress, contractAddr)
	}
	if !result.AddressConfirmed {
		t.Error("address should be confirmed via receipt event")
	}

	fields := store.updates[1]
	if fields == nil {
		t.Fatal("project record was not updated")
	}
	if fields["contract_address"] != contractAddr {
		t.Errorf("stored contract_address = %v", fields["contract_address"])
	}
	if fields["admin_agree"] != true {
		t.Errorf("stored admin_agree = %v, want true", fields["admin_agree"])
	}
	if fields["funding_status"] != model.FundingStatusOpening {
		t.Errorf("stored funding_status = %v, want OPENING", fields["funding_status"])
	}
	if fields["deployment_tx_hash"] != "0xdead" {
		t.Errorf("stored deployment_tx_hash = %v", fields["deployment_tx_hash"])
	}

	if len(deployments.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(deployments.records))
	}
	if deployments.records[0].Status != model.DeploymentStatusConfirmed {
		t.Errorf("audit status = %s, want confirmed", deployments.records[0].Status)
	}
}

func TestApproveValidatesBeforeChainCalls(t *testing.T) {
	cases := []struct {
		name   string
		params ApproveParams
	}{
		{"zero totalNFTs", ApproveParams{TotalNFTs: 0, NftPrice: 10, FarmerAddress: farmerAddr}},
		{"zero nftPrice", ApproveParams{TotalNFTs: 115, NftPrice: 0, FarmerAddress: farmerAddr}},
		{"bad farmer address", ApproveParams{TotalNFTs: 115, NftPrice: 10, FarmerAddress: "not-an-address"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(pendingProject(1))
			ledger := &fakeLedger{}
			l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

			_, err := l.Approve(context.Background(), 1, tc.params)
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("error = %v, want validation error", err)
			}
			if ledger.createCalls != 0 || ledger.enumCalls != 0 {
				t.Error("ledger must not be touched when validation fails")
			}
			if len(store.updates) != 0 {
				t.Error("record must not be modified when validation fails")
			}
		})
	}
}

func TestApproveRejectsAlreadyDeployed(t *testing.T) {
	p := pendingProject(1)
	p.ContractAddress = contractAddr
	store := newFakeStore(p)
	l := NewReconcileLogic(store, &fakeDeployments{}, &fakeLedger{})

	_, err := l.Approve(context.Background(), 1, validParams())
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("error = %v, want conflict error", err)
	}
}

func TestApproveRejectedProjectConflicts(t *testing.T) {
	p := pendingProject(1)
	p.ApplyStage(model.StageRejected)
	store := newFakeStore(p)
	ledger := &fakeLedger{}
	l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

	// 拒绝是终态，不允许再开放募资
	_, err := l.Approve(context.Background(), 1, validParams())
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
	if ledger.createCalls != 0 || ledger.enumCalls != 0 {
		t.Error("ledger must not be touched for a rejected project")
	}
	if len(store.updates) != 0 {
		t.Error("rejected project must not be modified")
	}

	if _, err := l.DeployFromRecord(context.Background(), 1); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("DeployFromRecord error = %v, want conflict", err)
	}
}

func TestApproveRejectsFractionalRates(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Project)
	}{
		{"fractional investor share", func(p *model.Project) { p.InvestorShare = 20.5 }},
		{"fractional interest rate", func(p *model.Project) { p.InterestRate = 5.5 }},
		{"fractional premium rate", func(p *model.Project) { p.PremiumRate = 33.3 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := pendingProject(1)
			p.InvestorShare = 20
			p.InterestRate = 5
			p.PremiumRate = 33
			tc.mutate(p)
			store := newFakeStore(p)
			ledger := &fakeLedger{}
			l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

			// 链上比率字段是整数，带小数的百分比会被截断而不是报错，
			// 必须在校验阶段拦下
			_, err := l.Approve(context.Background(), 1, validParams())
			if !apperr.IsKind(err, apperr.KindValidation) {
				t.Fatalf("error = %v, want validation", err)
			}
			if ledger.createCalls != 0 {
				t.Error("ledger must not be touched when rates are fractional")
			}
		})
	}
}

func TestApproveChainRevertLeavesRecordUntouched(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	ledger := &fakeLedger{
		enumerations: [][]string{{}},
		createErr:    apperr.New(apperr.KindChainRevert, "createProject reverted"),
	}
	l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

	_, err := l.Approve(context.Background(), 1, validParams())
	if !apperr.IsKind(err, apperr.KindChainRevert) {
		t.Fatalf("error = %v, want chain revert", err)
	}
	if len(store.updates) != 0 {
		t.Error("record must not be modified on chain failure")
	}
}

func TestApproveDiscoversAddressByDiff(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	newAddr := "0x3333333333333333333333333333333333333333"
	ledger := &fakeLedger{
		// 回执无事件，前快照[A,B]，后快照多出C
		receipt: &chain.DeployReceipt{TxHash: "0xdead"},
		enumerations: [][]string{
			{farmerAddr, contractAddr},
			{farmerAddr, contractAddr, newAddr},
		},
	}
	l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

	result, err := l.Approve(context.Background(), 1, validParams())
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if result.ContractAddress != newAddr {
		t.Errorf("contract address = %s, want %s", result.ContractAddress, newAddr)
	}
	if !result.AddressConfirmed {
		t.Error("unique diff candidate should be confirmed")
	}
}

func TestApproveFallsBackToLastAddressWhenDiffEmpty(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	deployments := &fakeDeployments{}
	ledger := &fakeLedger{
		// 前后快照相同：差集为空，退回末位并标记未确认
		receipt: &chain.DeployReceipt{TxHash: "0xdead"},
		enumerations: [][]string{
			{farmerAddr, contractAddr},
			{farmerAddr, contractAddr},
		},
	}
	l := NewReconcileLogic(store, deployments, ledger)

	result, err := l.Approve(context.Background(), 1, validParams())
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if result.ContractAddress != contractAddr {
		t.Errorf("contract address = %s, want last enumerated %s", result.ContractAddress, contractAddr)
	}
	if result.AddressConfirmed {
		t.Error("fallback address must be marked unconfirmed")
	}
	if len(deployments.records) != 1 || deployments.records[0].Status != model.DeploymentStatusUnconfirmed {
		t.Errorf("audit records = %+v, want one unconfirmed", deployments.records)
	}
}

func TestApproveAmbiguousWhenEnumerationEmpty(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	ledger := &fakeLedger{
		receipt:      &chain.DeployReceipt{TxHash: "0xdead"},
		enumerations: [][]string{{}, {}},
	}
	l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

	_, err := l.Approve(context.Background(), 1, validParams())
	if !apperr.IsKind(err, apperr.KindAmbiguousAddress) {
		t.Fatalf("error = %v, want ambiguous address", err)
	}
}

func TestDiffAddresses(t *testing.T) {
	addr, err := diffAddresses([]string{"0xa", "0xb"}, []string{"0xa", "0xb", "0xc"})
	if err != nil || addr != "0xc" {
		t.Errorf("diff = (%s, %v), want (0xc, nil)", addr, err)
	}

	if _, err := diffAddresses([]string{"0xa"}, []string{"0xa"}); !apperr.IsKind(err, apperr.KindAmbiguousAddress) {
		t.Errorf("empty diff error = %v, want ambiguous", err)
	}

	if _, err := diffAddresses([]string{"0xa"}, []string{"0xa", "0xb", "0xc"}); !apperr.IsKind(err, apperr.KindAmbiguousAddress) {
		t.Errorf("multi-candidate diff error = %v, want ambiguous", err)
	}
}

func TestApprovePartialFailure(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	store.updateErr = apperr.New(apperr.KindInternal, "database unavailable")
	deployments := &fakeDeployments{}
	ledger := &fakeLedger{
		receipt: &chain.DeployReceipt{TxHash: "0xdead", ContractAddress: contractAddr},
	}
	l := NewReconcileLogic(store, deployments, ledger)

	_, err := l.Approve(context.Background(), 1, validParams())
	if !apperr.IsKind(err, apperr.KindPartialFailure) {
		t.Fatalf("error = %v, want partial failure", err)
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatal("error is not an apperr.Error")
	}
	if appErr.TxHash != "0xdead" || appErr.Address != contractAddr {
		t.Errorf("partial failure carries tx=%s addr=%s", appErr.TxHash, appErr.Address)
	}

	if len(deployments.records) != 1 || deployments.records[0].Status != model.DeploymentStatusOrphaned {
		t.Errorf("audit records = %+v, want one orphaned", deployments.records)
	}
}

func TestRejectPending(t *testing.T) {
	store := newFakeStore(pendingProject(1))
	l := NewReconcileLogic(store, &fakeDeployments{}, &fakeLedger{})

	if err := l.Reject(1, "insufficient documentation"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	fields := store.updates[1]
	if fields == nil {
		t.Fatal("record was not updated")
	}
	if fields["funding_status"] != model.FundingStatusClosed {
		t.Errorf("funding_status = %v, want CLOSED", fields["funding_status"])
	}
	if fields["admin_notes"] != "insufficient documentation" {
		t.Errorf("admin_notes = %v", fields["admin_notes"])
	}
}

func TestRejectDeployedConflicts(t *testing.T) {
	p := pendingProject(1)
	p.ContractAddress = contractAddr
	store := newFakeStore(p)
	l := NewReconcileLogic(store, &fakeDeployments{}, &fakeLedger{})

	if err := l.Reject(1, "too late"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("error = %v, want conflict", err)
	}
}

func TestRejectIdempotent(t *testing.T) {
	p := pendingProject(1)
	p.ApplyStage(model.StageRejected)
	store := newFakeStore(p)
	l := NewReconcileLogic(store, &fakeDeployments{}, &fakeLedger{})

	if err := l.Reject(1, "again"); err != nil {
		t.Fatalf("repeated reject should be a no-op, got %v", err)
	}
	if len(store.updates) != 0 {
		t.Error("repeated reject must not rewrite the record")
	}
}

func TestAdoptOrphansAttachesByName(t *testing.T) {
	orphan := pendingProject(1)
	store := newFakeStore(orphan)
	deployments := &fakeDeployments{}
	ledger := &fakeLedger{
		enumerations: [][]string{{contractAddr}},
		names:        map[string]string{contractAddr: "Guava Orchard"},
		data: map[string]*chain.ProjectData{
			contractAddr: {
				Farmer:      farmerAddr,
				TotalSupply: 115,
				NftPrice:    10,
				MintedCount: 0,
			},
		},
	}
	l := NewReconcileLogic(store, deployments, ledger)

	adopted, err := l.AdoptOrphans(context.Background())
	if err != nil {
		t.Fatalf("AdoptOrphans failed: %v", err)
	}
	if adopted != 1 {
		t.Fatalf("adopted = %d, want 1", adopted)
	}

	fields := store.updates[1]
	if fields == nil {
		t.Fatal("orphan record was not updated")
	}
	if fields["contract_address"] != contractAddr {
		t.Errorf("contract_address = %v", fields["contract_address"])
	}
	if fields["total_nft"] != int64(115) {
		t.Errorf("total_nft = %v, want 115", fields["total_nft"])
	}
}

func TestAdoptOrphansResolvesAuditRecords(t *testing.T) {
	orphan := pendingProject(1)
	store := newFakeStore(orphan)
	deployments := &fakeDeployments{}
	deployments.Create(&model.Deployment{
		ProjectId:       1,
		TxHash:          "0xdead",
		ContractAddress: contractAddr,
		Status:          model.DeploymentStatusOrphaned,
	})
	// 同项目更早一次超时部署落在别的地址，不属于本次收编
	staleAddr := "0x6666666666666666666666666666666666666666"
	deployments.Create(&model.Deployment{
		ProjectId:       1,
		TxHash:          "0xbeef",
		ContractAddress: staleAddr,
		Status:          model.DeploymentStatusOrphaned,
	})
	ledger := &fakeLedger{
		enumerations: [][]string{{contractAddr}},
		names:        map[string]string{contractAddr: "Guava Orchard"},
		data: map[string]*chain.ProjectData{
			contractAddr: {Farmer: farmerAddr, TotalSupply: 115, NftPrice: 10},
		},
	}
	l := NewReconcileLogic(store, deployments, ledger)

	if _, err := l.AdoptOrphans(context.Background()); err != nil {
		t.Fatalf("AdoptOrphans failed: %v", err)
	}

	// 原始的孤儿审计记录被解决，而不是永远留在待收编状态
	if deployments.records[0].Status != model.DeploymentStatusConfirmed {
		t.Errorf("orphaned audit record status = %s, want confirmed", deployments.records[0].Status)
	}
	// 只按合约地址匹配：别的地址上的孤儿记录保持原状
	if deployments.records[1].Status != model.DeploymentStatusOrphaned {
		t.Errorf("stale audit record status = %s, want orphaned", deployments.records[1].Status)
	}
}

func TestAdoptOrphansSkipsKnownAndUnmatched(t *testing.T) {
	attached := pendingProject(1)
	attached.ContractAddress = contractAddr
	store := newFakeStore(attached)
	unknownAddr := "0x4444444444444444444444444444444444444444"
	ledger := &fakeLedger{
		enumerations: [][]string{{contractAddr, unknownAddr}},
		names:        map[string]string{unknownAddr: "Nobody Knows This Farm"},
	}
	l := NewReconcileLogic(store, &fakeDeployments{}, ledger)

	adopted, err := l.AdoptOrphans(context.Background())
	if err != nil {
		t.Fatalf("AdoptOrphans failed: %v", err)
	}
	if adopted != 0 {
		t.Errorf("adopted = %d, want 0", adopted)
	}
	if len(store.updates) != 0 {
		t.Error("no record should be updated")
	}
}

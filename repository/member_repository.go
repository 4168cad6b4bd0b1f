/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package repository

import (
	"context"

	"github.com/tomoncle/roster/dto"
	"github.com/tomoncle/roster/entity"
	"github.com/tomoncle/roster/types"
)

// Registered member queries.
const (
	QueryMemberFindByUserName = "Member.findByUserName"
	QueryMemberFindUser       = "Member.findUser"
	QueryMemberUserNameList   = "Member.findUserNameList"
	QueryMemberDto            = "Member.findMemberDto"
	QueryMemberFindByNames    = "Member.findByNames"
	QueryMemberFindV2ByAge    = "Member.findV2ByAge"
	QueryMemberBulkAgePlus    = "Member.bulkAgePlus"

	GraphMemberAll = "Member.all"
)

const (
	nativeMemberByUserName   = "SELECT * FROM member WHERE user_name = ?"
	nativeMemberProjection   = "SELECT m.member_id AS id, m.user_name AS user_name, t.name AS team_name FROM member AS m LEFT JOIN team AS t ON t.team_id = m.team_id"
	nativeMemberProjectCount = "SELECT count(*) FROM member"
)

func init() {
	defaultQueries.MustRegister(
		NamedQuery{
			Name:  QueryMemberFindByUserName,
			Query: "SELECT m.* FROM member AS m WHERE m.user_name = :userName",
		},
		NamedQuery{
			Name:  QueryMemberFindUser,
			Query: "SELECT m.* FROM member AS m WHERE m.user_name = :userName AND m.age = :age",
		},
		NamedQuery{
			Name:  QueryMemberUserNameList,
			Query: "SELECT m.user_name FROM member AS m",
		},
		NamedQuery{
			Name:  QueryMemberDto,
			Query: "SELECT m.member_id AS id, m.user_name AS user_name, t.name AS team_name FROM member AS m INNER JOIN team AS t ON t.team_id = m.team_id",
		},
		NamedQuery{
			Name:  QueryMemberFindByNames,
			Query: "SELECT m.* FROM member AS m WHERE m.user_name IN (:names)",
		},
		NamedQuery{
			Name:       QueryMemberFindV2ByAge,
			Query:      "SELECT m.* FROM member AS m LEFT JOIN team AS t ON t.team_id = m.team_id WHERE m.age = :age",
			CountQuery: "SELECT count(*) FROM member AS m WHERE m.age = :age",
		},
		NamedQuery{
			Name:      QueryMemberBulkAgePlus,
			Query:     "UPDATE member SET age = age + 1 WHERE age >= :age",
			Modifying: true,
		},
	)
}

// memberDerivedQueries are parsed when the repository is built so that a
// bad property fails early.
var memberDerivedQueries = []string{
	"findByUserNameAndAgeGreaterThan",
	"findTop3HelloBy",
	"findListByUserName",
	"findMemberByUserName",
	"findOptionalByUserName",
	"findByAge",
	"findSliceByAge",
	"findListByAge",
	"findEntityGraphByUserName",
	"findNamedEntityGraphByUserName",
	"findReadOnlyByUserName",
	"findLockByUserName",
	"findProjectionsByUserName",
	"findProjectionsOnlyDtoByUserName",
}

// MemberTeam is the association from Member to Team.
var MemberTeam = Association{
	Name:         "team",
	Field:        "Team",
	Model:        (*entity.Team)(nil),
	LocalColumn:  "team_id",
	TargetColumn: "team_id",
}

// MemberRepositoryCustom is implemented by hand rather than derived.
type MemberRepositoryCustom interface {
	FindMemberCustom(ctx context.Context) ([]*entity.Member, error)
}

type memberRepositoryImpl struct {
	members *Repository[entity.Member]
}

func (r *memberRepositoryImpl) FindMemberCustom(ctx context.Context) ([]*entity.Member, error) {
	q := r.members.NewSelect(ctx).OrderExpr("m.member_id ASC")
	return r.members.ScanManaged(ctx, "find member custom", q)
}

type MemberRepository struct {
	*Repository[entity.Member]
	MemberRepositoryCustom
	teams *Repository[entity.Team]
}

func NewMemberRepository(session *Session) (*MemberRepository, error) {
	base, err := NewRepository[entity.Member](session, MemberTeam)
	if err != nil {
		return nil, err
	}
	if err := base.mustDerive(memberDerivedQueries...); err != nil {
		return nil, err
	}
	if err := base.RegisterEntityGraph(EntityGraph{Name: GraphMemberAll, AttributePaths: []string{"team"}}); err != nil {
		return nil, err
	}
	teams, err := NewRepository[entity.Team](session)
	if err != nil {
		return nil, err
	}
	return &MemberRepository{
		Repository:             base,
		MemberRepositoryCustom: &memberRepositoryImpl{members: base},
		teams:                  teams,
	}, nil
}

func (r *MemberRepository) FindByUserNameAndAgeGreaterThan(ctx context.Context, userName string, age int) ([]*entity.Member, error) {
	return r.FindBy(ctx, "findByUserNameAndAgeGreaterThan", userName, age)
}

// FindTop3HelloBy returns the first three members.
func (r *MemberRepository) FindTop3HelloBy(ctx context.Context) ([]*entity.Member, error) {
	return r.FindBy(ctx, "findTop3HelloBy")
}

func (r *MemberRepository) FindByUserName(ctx context.Context, userName string) ([]*entity.Member, error) {
	return r.FindNamed(ctx, QueryMemberFindByUserName, map[string]interface{}{"userName": userName})
}

func (r *MemberRepository) FindUser(ctx context.Context, userName string, age int) ([]*entity.Member, error) {
	return r.FindNamed(ctx, QueryMemberFindUser, map[string]interface{}{"userName": userName, "age": age})
}

func (r *MemberRepository) FindUserNameList(ctx context.Context) ([]string, error) {
	return ScanNamed[entity.Member, string](ctx, r.Repository, QueryMemberUserNameList, nil)
}

func (r *MemberRepository) FindMemberDto(ctx context.Context) ([]dto.MemberDto, error) {
	return ScanNamed[entity.Member, dto.MemberDto](ctx, r.Repository, QueryMemberDto, nil)
}

func (r *MemberRepository) FindByNames(ctx context.Context, names []string) ([]*entity.Member, error) {
	if len(names) == 0 {
		return []*entity.Member{}, nil
	}
	return r.FindNamed(ctx, QueryMemberFindByNames, map[string]interface{}{"names": names})
}

func (r *MemberRepository) FindListByUserName(ctx context.Context, userName string) ([]*entity.Member, error) {
	return r.FindBy(ctx, "findListByUserName", userName)
}

// FindMemberByUserName returns nil when no member matches.
func (r *MemberRepository) FindMemberByUserName(ctx context.Context, userName string) (*entity.Member, error) {
	return r.FindOneBy(ctx, "findMemberByUserName", userName)
}

func (r *MemberRepository) FindOptionalByUserName(ctx context.Context, userName string) (*entity.Member, bool, error) {
	m, err := r.FindOneBy(ctx, "findOptionalByUserName", userName)
	return m, m != nil, err
}

func (r *MemberRepository) FindByAge(ctx context.Context, age int, req *types.PageRequest) (*types.Page[entity.Member], error) {
	spec, err := r.derivedSpec("findByAge", age)
	if err != nil {
		return nil, err
	}
	return r.FindAllSpecPage(ctx, spec, req)
}

func (r *MemberRepository) FindSliceByAge(ctx context.Context, age int, req *types.PageRequest) (*types.Slice[entity.Member], error) {
	spec, err := r.derivedSpec("findSliceByAge", age)
	if err != nil {
		return nil, err
	}
	return r.FindAllSpecSlice(ctx, spec, req)
}

// FindListByAge returns the requested window without counting.
func (r *MemberRepository) FindListByAge(ctx context.Context, age int, req *types.PageRequest) ([]*entity.Member, error) {
	if req == nil {
		req = types.NewDefaultPageRequest(0, types.DefaultPageSize)
	}
	return r.findDerived(ctx, "findListByAge", findOptions{
		sort:   req.GetSort(),
		limit:  req.GetPageSize(),
		offset: req.GetOffset(),
	}, age)
}

// FindV2ByAge pages a declared query whose total comes from a separate count query.
func (r *MemberRepository) FindV2ByAge(ctx context.Context, age int, req *types.PageRequest) (*types.Page[entity.Member], error) {
	return r.FindNamedPage(ctx, QueryMemberFindV2ByAge, map[string]interface{}{"age": age}, req)
}

// BulkAgePlus increments the age of every member at least age years old
// and clears the identity cache.
func (r *MemberRepository) BulkAgePlus(ctx context.Context, age int) (int, error) {
	n, err := r.ExecNamed(ctx, QueryMemberBulkAgePlus, map[string]interface{}{"age": age})
	return int(n), err
}

// FindMemberFetchJoin loads members with their teams in one query.
func (r *MemberRepository) FindMemberFetchJoin(ctx context.Context) ([]*entity.Member, error) {
	return r.find(ctx, nil, findOptions{graph: []string{"team"}, sort: types.SortBy(types.Asc, "id")})
}

// FindAll loads the team of every member eagerly.
func (r *MemberRepository) FindAll(ctx context.Context) ([]*entity.Member, error) {
	return r.find(ctx, nil, findOptions{graph: []string{"team"}})
}

func (r *MemberRepository) FindMemberEntityGraph(ctx context.Context) ([]*entity.Member, error) {
	return r.find(ctx, nil, findOptions{graph: []string{"team"}})
}

func (r *MemberRepository) FindEntityGraphByUserName(ctx context.Context, userName string) ([]*entity.Member, error) {
	return r.findDerived(ctx, "findEntityGraphByUserName", findOptions{graph: []string{"team"}}, userName)
}

func (r *MemberRepository) FindNamedEntityGraphByUserName(ctx context.Context, userName string) ([]*entity.Member, error) {
	spec, err := r.derivedSpec("findNamedEntityGraphByUserName", userName)
	if err != nil {
		return nil, err
	}
	return r.FindAllGraph(ctx, GraphMemberAll, spec)
}

// Team returns the member's team, loading it on first access. Inside a
// transaction a team already loaded is not queried again.
func (r *MemberRepository) Team(ctx context.Context, m *entity.Member) (*entity.Team, error) {
	if m.Team != nil {
		return m.Team, nil
	}
	if m.TeamID == nil {
		return nil, nil
	}
	team, err := r.teams.FindByID(ctx, *m.TeamID)
	if err != nil {
		return nil, err
	}
	team.Attach(m)
	return team, nil
}

// FindReadOnlyByUserName returns a member that is not registered in the
// identity cache.
func (r *MemberRepository) FindReadOnlyByUserName(ctx context.Context, userName string) (*entity.Member, error) {
	return single(r.findDerived(ctx, "findReadOnlyByUserName", findOptions{limit: 2, detach: true}, userName))
}

// FindLockByUserName selects members for update. It must run inside a
// transaction; the wait is bounded by the session lock timeout.
func (r *MemberRepository) FindLockByUserName(ctx context.Context, userName string) ([]*entity.Member, error) {
	if !r.current(ctx).InTransaction() {
		return nil, ErrTransactionRequired
	}
	return r.findDerived(ctx, "findLockByUserName", findOptions{lock: true}, userName)
}

func (r *MemberRepository) FindProjectionsByUserName(ctx context.Context, userName string) ([]dto.UserNameOnly, error) {
	spec, err := r.derivedSpec("findProjectionsByUserName", userName)
	if err != nil {
		return nil, err
	}
	return FindProjection[entity.Member, dto.UserNameOnly](ctx, r.Repository, spec, types.Unsorted())
}

func (r *MemberRepository) FindProjectionsOnlyDtoByUserName(ctx context.Context, userName string) ([]dto.UserNameOnlyDto, error) {
	return FindProjectionsByUserNameAs[dto.UserNameOnlyDto](ctx, r, userName)
}

// FindProjectionsByUserNameAs selects the columns of P, which may nest the
// member's team, for members named userName.
func FindProjectionsByUserNameAs[P any](ctx context.Context, r *MemberRepository, userName string) ([]P, error) {
	spec, err := r.derivedSpec("findProjectionsOnlyDtoByUserName", userName)
	if err != nil {
		return nil, err
	}
	return FindProjection[entity.Member, P](ctx, r.Repository, spec, types.Unsorted())
}

// FindByNativeQuery runs plain SQL; nil when no member matches.
func (r *MemberRepository) FindByNativeQuery(ctx context.Context, userName string) (*entity.Member, error) {
	return single(r.FindNative(ctx, nativeMemberByUserName, userName))
}

func (r *MemberRepository) FindByNativeProjection(ctx context.Context, req *types.PageRequest) (*types.Page[dto.MemberProjection], error) {
	return FindNativePage[entity.Member, dto.MemberProjection](ctx, r.Repository, nativeMemberProjection, nativeMemberProjectCount, nil, req)
}

// MemberQueryRepository is a standalone query repository outside the
// MemberRepository contract.
type MemberQueryRepository struct {
	members *Repository[entity.Member]
}

func NewMemberQueryRepository(session *Session) (*MemberQueryRepository, error) {
	members, err := NewRepository[entity.Member](session, MemberTeam)
	if err != nil {
		return nil, err
	}
	return &MemberQueryRepository{members: members}, nil
}

func (r *MemberQueryRepository) FindAllMembers(ctx context.Context) ([]*entity.Member, error) {
	return r.members.ScanManaged(ctx, "find all members", r.members.NewSelect(ctx).Order("member_id"))
}

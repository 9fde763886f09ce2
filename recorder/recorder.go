package recorder

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/clock"
	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/config"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

var log = logrus.WithField("module", "recorder")

const connectTimeout = 5 * time.Second

// agentDoc 单个智能体的轨迹记录
type agentDoc struct {
	ID      string  `bson:"id"`
	X       float64 `bson:"x"`
	Y       float64 `bson:"y"`
	Angle   float64 `bson:"angle,omitempty"`
	Waiting bool    `bson:"waiting,omitempty"`
}

// frameDoc 一次世界快照的轨迹记录
type frameDoc struct {
	T        float64    `bson:"t"`     // 运行秒数
	Clock    string     `bson:"clock"` // HH:MM:SS
	LightV   string     `bson:"light_v"`
	LightH   string     `bson:"light_h"`
	Vehicles []agentDoc `bson:"vehicles"`
	Walkers  []agentDoc `bson:"pedestrians"`
}

// Recorder 轨迹记录器
// 功能：按固定间隔采样世界快照并写入MongoDB
// 说明：URI为空时构造返回nil，调用方按禁用处理；写入失败只记日志，
// 不影响仿真推进
type Recorder struct {
	store    *world.Store
	clk      *clock.Clock
	client   *mongo.Client
	coll     *mongo.Collection
	interval time.Duration
}

// New 创建轨迹记录器
// 参数：cfg-输出配置，store-世界状态，clk-运行时钟
// 返回：记录器与错误；cfg.URI为空时返回(nil, nil)
func New(cfg config.Output, store *world.Store, clk *clock.Clock) (*Recorder, error) {
	if cfg.URI == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db, col := cfg.DB, cfg.Col
	if db == "" {
		db = "crossing_sim"
	}
	if col == "" {
		col = "frames"
	}
	return &Recorder{
		store:    store,
		clk:      clk,
		client:   client,
		coll:     client.Database(db).Collection(col),
		interval: config.Duration(cfg.Interval),
	}, nil
}

// Run 记录器主循环
// 说明：阻塞运行直至世界关闭，随后断开连接
func (r *Recorder) Run() {
	log.Infof("recording to %s every %v", r.coll.Name(), r.interval)
	for r.store.Alive() {
		r.record()
		time.Sleep(r.interval)
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := r.client.Disconnect(ctx); err != nil {
		log.Errorf("disconnect failed: %v", err)
	}
}

// record 采样并写入一帧
func (r *Recorder) record() {
	sn := r.store.Snapshot()
	lightV, _ := sn.Light(entity.AxisVertical)
	lightH, _ := sn.Light(entity.AxisHorizontal)
	doc := frameDoc{
		T:      r.clk.T(),
		Clock:  r.clk.String(),
		LightV: string(lightV),
		LightH: string(lightH),
	}
	sn.EachPos(entity.VehicleIDPrefix, "", func(id string, pos r2.Vec) bool {
		angle, _ := sn.Angle(id)
		doc.Vehicles = append(doc.Vehicles, agentDoc{ID: id, X: pos.X, Y: pos.Y, Angle: angle})
		return true
	})
	sn.EachPos(entity.PedestrianIDPrefix, "", func(id string, pos r2.Vec) bool {
		doc.Walkers = append(doc.Walkers, agentDoc{ID: id, X: pos.X, Y: pos.Y, Waiting: sn.Waiting(id)})
		return true
	})
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		log.Errorf("insert frame failed: %v", err)
	}
}

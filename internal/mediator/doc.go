// Package mediator 实现 Runner 目录服务
//
// Runner 通过 runner-mediator 通道注册（RunnerRegister）并周期性上报状态
// （RunnerStatus）；应用通过 app-mediator 通道查找（RunnerRequest），
// Mediator 回复最合适的一个 Runner（RunnerResponse）。
//
// 选择规则：
//
//	过滤：State == Ready；MaxTasks > 0；Label 精确匹配；Platform 属于候选；
//	      Tags 有交集；有空闲任务槽位或队列空间
//	排序：空闲槽位多者优先；相同时队列不限者优先，否则队列短者优先；
//	      仍相同时按 ID 排序，结果确定
//
// 选中后在下一次状态上报之前乐观占用一个槽位（或队列位置），
// 两次上报之间的连续查找会分散到不同 Runner。
package mediator
